package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

// CreateStudentRequest represents payload for registering a student.
type CreateStudentRequest struct {
	Name     string   `json:"name" validate:"required,max=200"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Teachers []string `json:"teachers" validate:"unique,dive,uuid"`
}

// StudentService manages students and their teacher links.
type StudentService struct {
	repo      studentRepository
	teachers  teacherFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, teachers teacherFinder, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, teachers: teachers, validator: validate, logger: logger}
}

// List returns all students.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	return students, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// Create registers a student linked to existing teachers.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	for _, teacherID := range req.Teachers {
		if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "teacher not found: "+teacherID)
			}
			return nil, appErrors.Internal(err, "failed to load teacher")
		}
	}

	student := &models.Student{
		Name:       strings.TrimSpace(req.Name),
		Email:      normalizeEmail(req.Email),
		TeacherIDs: append(make([]string, 0, len(req.Teachers)), req.Teachers...),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	return student, nil
}
