package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
)

type teacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	DeleteWithReferences(ctx context.Context, id string) (models.TeacherSweep, error)
}

type earningsRecomputer interface {
	RecomputeAll(ctx context.Context) ([]models.Teacher, error)
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	Name           string               `json:"name" validate:"required,max=200"`
	Email          string               `json:"email" validate:"required,email"`
	Phone          string               `json:"phone" validate:"omitempty,max=50"`
	Specialization string               `json:"specialization" validate:"omitempty,max=200"`
	Status         models.TeacherStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	Password       string               `json:"password" validate:"required,min=6,max=72"`
}

// UpdateTeacherRequest represents payload for updating teachers.
type UpdateTeacherRequest struct {
	Name           string               `json:"name" validate:"required,max=200"`
	Email          string               `json:"email" validate:"required,email"`
	Phone          string               `json:"phone" validate:"omitempty,max=50"`
	Specialization string               `json:"specialization" validate:"omitempty,max=200"`
	Status         models.TeacherStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	earnings  earningsRecomputer
	cache     *DashboardCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, earnings earningsRecomputer, cache *DashboardCache, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, earnings: earnings, cache: cache, validator: validate, logger: logger}
}

// List recomputes every teacher's earnings and returns the refreshed records.
func (s *TeacherService) List(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.earnings.RecomputeAll(ctx)
	if err != nil {
		return nil, err
	}
	return teachers, nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Internal(err, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher account.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Specialization = strings.TrimSpace(req.Specialization)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid teacher payload")
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	status := req.Status
	if status == "" {
		status = models.TeacherStatusActive
	}
	teacher := &models.Teacher{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Specialization: req.Specialization,
		Status:         status,
		Role:           models.RoleTeacher,
		PasswordHash:   string(hash),
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
		}
		return nil, appErrors.Internal(err, "failed to create teacher")
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID))
	return teacher, nil
}

// Update modifies an existing teacher's profile.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Specialization = strings.TrimSpace(req.Specialization)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, id); err != nil {
		return nil, err
	}

	teacher.Name = req.Name
	teacher.Email = req.Email
	teacher.Phone = req.Phone
	teacher.Specialization = req.Specialization
	if req.Status != "" {
		teacher.Status = req.Status
	}
	if err := s.repo.Update(ctx, teacher); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
		}
		return nil, appErrors.Internal(err, "failed to update teacher")
	}
	s.invalidateDashboard(ctx, id)
	return teacher, nil
}

// Delete removes a teacher, unassigning their batches and detaching their
// students in the same transaction.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	sweep, err := s.repo.DeleteWithReferences(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Internal(err, "failed to delete teacher")
	}
	s.logger.Info("teacher deleted",
		zap.String("teacher_id", id),
		zap.Int64("batches_unassigned", sweep.BatchesUnassigned),
		zap.Int64("students_detached", sweep.StudentsDetached),
	)
	s.invalidateDashboard(ctx, id)
	return nil
}

func (s *TeacherService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}
	return nil
}

func (s *TeacherService) invalidateDashboard(ctx context.Context, teacherID string) {
	_ = s.cache.Evict(ctx, teacherID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const uniqueViolationCode pq.ErrorCode = "23505"

// isUniqueViolation reports whether err is a postgres unique_violation,
// raised when a concurrent write claims the same email after the check.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
