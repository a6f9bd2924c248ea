package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
	"github.com/noah-isme/cohort-admin-api/pkg/export"
	"github.com/noah-isme/cohort-admin-api/pkg/revenue"
)

type batchRepository interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
	Delete(ctx context.Context, id string) error
}

type teacherFinder interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// BatchRequest is the create/update payload for batches. SessionTopic is
// newline separated text and is stored as an ordered list.
type BatchRequest struct {
	BatchName     string   `json:"batchName" validate:"required,max=200"`
	Teacher       *string  `json:"teacher" validate:"omitempty,uuid"`
	StartDate     string   `json:"startDate" validate:"required"`
	EndDate       string   `json:"endDate" validate:"required"`
	ScheduleDays  []string `json:"scheduleDays" validate:"unique,dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	SessionTime   string   `json:"sessionTime" validate:"max=100"`
	SessionTopic  string   `json:"sessionTopic"`
	TotalStudents int      `json:"totalStudents" validate:"gte=0"`
	Revenue       float64  `json:"revenue" validate:"gte=0"`
}

// BatchExport is a rendered batch listing ready for download.
type BatchExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// BatchService manages batches and their read-time projection.
type BatchService struct {
	repo        batchRepository
	teachers    teacherFinder
	allocator   *revenue.Allocator
	cache       *DashboardCache
	validator   *validator.Validate
	logger      *zap.Logger
	exportTitle string
	now         func() time.Time
}

// NewBatchService constructs a BatchService.
func NewBatchService(repo batchRepository, teachers teacherFinder, allocator *revenue.Allocator, cache *DashboardCache, validate *validator.Validate, logger *zap.Logger, exportTitle string) *BatchService {
	if allocator == nil {
		allocator = revenue.NewAllocator(revenue.DefaultRates())
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if exportTitle == "" {
		exportTitle = "Batch Overview"
	}
	return &BatchService{
		repo:        repo,
		teachers:    teachers,
		allocator:   allocator,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		exportTitle: exportTitle,
		now:         time.Now,
	}
}

// List returns projected batches, optionally narrowed by teacher and status.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchView, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of upcoming, ongoing, completed")
	}
	batches, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list batches")
	}
	now := s.now().UTC()
	views := make([]models.BatchView, 0, len(batches))
	for _, batch := range batches {
		view := projectBatch(batch, s.allocator, now)
		if filter.Status != "" && view.Status != filter.Status {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// Get returns a single projected batch.
func (s *BatchService) Get(ctx context.Context, id string) (*models.BatchView, error) {
	batch, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := projectBatch(*batch, s.allocator, s.now().UTC())
	return &view, nil
}

// Create validates and stores a new batch.
func (s *BatchService) Create(ctx context.Context, req BatchRequest) (*models.BatchView, error) {
	batch := &models.Batch{}
	if err := s.apply(ctx, batch, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, appErrors.Internal(err, "failed to create batch")
	}
	s.logger.Info("batch created", zap.String("batch_id", batch.ID))
	s.invalidateDashboards(ctx, batch.TeacherID)
	view := projectBatch(*batch, s.allocator, s.now().UTC())
	return &view, nil
}

// Update replaces the fields of an existing batch.
func (s *BatchService) Update(ctx context.Context, id string, req BatchRequest) (*models.BatchView, error) {
	batch, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previousTeacher := batch.TeacherID
	if err := s.apply(ctx, batch, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, appErrors.Internal(err, "failed to update batch")
	}
	s.invalidateDashboards(ctx, previousTeacher, batch.TeacherID)
	view := projectBatch(*batch, s.allocator, s.now().UTC())
	return &view, nil
}

// Delete removes a batch.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	batch, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete batch")
	}
	s.logger.Info("batch deleted", zap.String("batch_id", id))
	s.invalidateDashboards(ctx, batch.TeacherID)
	return nil
}

// Export renders the projected batch listing as CSV or PDF.
func (s *BatchService) Export(ctx context.Context, filter models.BatchFilter, rawFormat string) (*BatchExport, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Invalid(err, "format must be csv or pdf")
	}
	views, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: []string{"Batch", "Teacher", "Status", "Start", "End", "Schedule", "Session Time", "Students", "Revenue", "Teacher Share", "Platform Share"},
	}
	for _, view := range views {
		teacher := ""
		if view.TeacherName != nil {
			teacher = *view.TeacherName
		}
		data.Rows = append(data.Rows, []string{
			view.BatchName,
			teacher,
			string(view.Status),
			view.StartDate.UTC().Format(dateOnlyLayout),
			view.EndDate.UTC().Format(dateOnlyLayout),
			strings.Join(view.ScheduleDays, ", "),
			view.SessionTime,
			strconv.Itoa(view.TotalStudents),
			formatMoney(view.Revenue),
			formatMoney(view.TeacherShare),
			formatMoney(view.PlatformShare),
		})
	}

	body, err := export.ForFormat(format).Render(data, s.exportTitle)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render batch export")
	}
	return &BatchExport{
		Filename:    fmt.Sprintf("batches-%s.%s", s.now().UTC().Format("20060102"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func (s *BatchService) load(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Internal(err, "failed to load batch")
	}
	return batch, nil
}

// apply validates req and copies it onto batch.
func (s *BatchService) apply(ctx context.Context, batch *models.Batch, req BatchRequest) error {
	if req.Teacher != nil && strings.TrimSpace(*req.Teacher) == "" {
		req.Teacher = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid batch payload")
	}

	start, err := parseBatchDate(req.StartDate, false)
	if err != nil {
		return appErrors.Invalid(err, "startDate must be YYYY-MM-DD or RFC 3339")
	}
	end, err := parseBatchDate(req.EndDate, true)
	if err != nil {
		return appErrors.Invalid(err, "endDate must be YYYY-MM-DD or RFC 3339")
	}
	if start.After(end) {
		return appErrors.Clone(appErrors.ErrValidation, "startDate must not be after endDate")
	}

	batch.TeacherName = nil
	if req.Teacher != nil {
		teacher, err := s.teachers.FindByID(ctx, *req.Teacher)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "teacher not found")
			}
			return appErrors.Internal(err, "failed to load teacher")
		}
		batch.TeacherName = &teacher.Name
	}

	batch.BatchName = strings.TrimSpace(req.BatchName)
	batch.TeacherID = req.Teacher
	batch.StartDate = start
	batch.EndDate = end
	batch.ScheduleDays = append(make([]string, 0, len(req.ScheduleDays)), req.ScheduleDays...)
	batch.SessionTime = strings.TrimSpace(req.SessionTime)
	batch.SessionTopic = splitTopics(req.SessionTopic)
	batch.TotalStudents = req.TotalStudents
	batch.Revenue = revenue.Round2(req.Revenue)
	return nil
}

func (s *BatchService) invalidateDashboards(ctx context.Context, teacherIDs ...*string) {
	ids := make([]string, 0, len(teacherIDs))
	for _, id := range teacherIDs {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	_ = s.cache.Evict(ctx, ids...)
}

// splitTopics turns newline separated text into a list, dropping blank lines.
func splitTopics(raw string) []string {
	topics := []string{}
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			topics = append(topics, line)
		}
	}
	return topics
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
