package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
	"github.com/noah-isme/cohort-admin-api/pkg/revenue"
)

type saleRepository interface {
	List(ctx context.Context, filter models.SaleFilter) ([]models.Sale, error)
	FindByID(ctx context.Context, id string) (*models.Sale, error)
	Create(ctx context.Context, sale *models.Sale) error
	UpdateStatus(ctx context.Context, id string, status models.SaleStatus) error
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type earningsScheduler interface {
	ScheduleForStudent(ctx context.Context, studentID string) error
}

// CreateSaleRequest represents payload for recording a sale.
type CreateSaleRequest struct {
	Student string            `json:"student" validate:"required,uuid"`
	Amount  float64           `json:"amount" validate:"gte=0"`
	Status  models.SaleStatus `json:"status" validate:"omitempty,oneof=completed pending cancelled"`
}

// UpdateSaleStatusRequest represents payload for a sale status transition.
type UpdateSaleStatusRequest struct {
	Status models.SaleStatus `json:"status" validate:"required,oneof=completed pending cancelled"`
}

// SaleService records sales and keeps teacher earnings in step with them.
type SaleService struct {
	repo      saleRepository
	students  studentFinder
	earnings  earningsScheduler
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSaleService constructs a SaleService.
func NewSaleService(repo saleRepository, students studentFinder, earnings earningsScheduler, validate *validator.Validate, logger *zap.Logger) *SaleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{repo: repo, students: students, earnings: earnings, validator: validate, logger: logger}
}

// List returns sales matching filter.
func (s *SaleService) List(ctx context.Context, filter models.SaleFilter) ([]models.Sale, error) {
	switch filter.Status {
	case "", models.SaleStatusCompleted, models.SaleStatusPending, models.SaleStatusCancelled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of completed, pending, cancelled")
	}
	sales, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sales")
	}
	return sales, nil
}

// Create records a sale. A sale created as completed schedules an earnings
// recompute for the student's teachers.
func (s *SaleService) Create(ctx context.Context, req CreateSaleRequest) (*models.Sale, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid sale payload")
	}
	if _, err := s.students.FindByID(ctx, req.Student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}

	status := req.Status
	if status == "" {
		status = models.SaleStatusPending
	}
	sale := &models.Sale{
		StudentID: req.Student,
		Amount:    revenue.Round2(req.Amount),
		Status:    status,
	}
	if err := s.repo.Create(ctx, sale); err != nil {
		return nil, appErrors.Internal(err, "failed to create sale")
	}
	if sale.Status == models.SaleStatusCompleted {
		s.scheduleEarnings(ctx, sale.StudentID)
	}
	return sale, nil
}

// UpdateStatus transitions a sale. Entering or leaving completed schedules an
// earnings recompute.
func (s *SaleService) UpdateStatus(ctx context.Context, id string, req UpdateSaleStatusRequest) (*models.Sale, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid sale status payload")
	}
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sale not found")
		}
		return nil, appErrors.Internal(err, "failed to load sale")
	}
	if sale.Status == req.Status {
		return sale, nil
	}

	wasCompleted := sale.Status == models.SaleStatusCompleted
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Internal(err, "failed to update sale status")
	}
	sale.Status = req.Status
	if wasCompleted != (sale.Status == models.SaleStatusCompleted) {
		s.scheduleEarnings(ctx, sale.StudentID)
	}
	return sale, nil
}

// scheduleEarnings never fails the request: the sale is already stored and
// the next teacher listing recomputes earnings regardless.
func (s *SaleService) scheduleEarnings(ctx context.Context, studentID string) {
	if s.earnings == nil {
		return
	}
	if err := s.earnings.ScheduleForStudent(ctx, studentID); err != nil {
		s.logger.Warn("failed to schedule earnings recompute", zap.String("student_id", studentID), zap.Error(err))
	}
}
