package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cohort-admin-api/internal/dto"
	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
	"github.com/noah-isme/cohort-admin-api/pkg/revenue"
)

type dashboardBatchLister interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Teachers  teacherFinder
	Batches   dashboardBatchLister
	Allocator *revenue.Allocator
	Cache     *DashboardCache
	Logger    *zap.Logger
	Config    DashboardServiceConfig
}

// DashboardService composes the signed-in teacher's overview.
type DashboardService struct {
	teachers  teacherFinder
	batches   dashboardBatchLister
	allocator *revenue.Allocator
	cache     *DashboardCache
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	allocator := params.Allocator
	if allocator == nil {
		allocator = revenue.NewAllocator(revenue.DefaultRates())
	}
	return &DashboardService{
		teachers:  params.Teachers,
		batches:   params.Batches,
		allocator: allocator,
		cache:     params.Cache,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Teacher returns the dashboard for teacherID and reports whether it was
// served from cache. Entries are keyed by UTC day and expire no later than
// the next batch status change, so a cached status is never stale.
func (s *DashboardService) Teacher(ctx context.Context, teacherID string) (*dto.TeacherDashboardResponse, bool, error) {
	if teacherID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "teacherId is required")
	}
	now := s.now().UTC()
	var cached dto.TeacherDashboardResponse
	// A broken cache degrades to a fresh read; Load already logged it.
	if hit, _ := s.cache.Load(ctx, teacherID, now, &cached); hit {
		return &cached, true, nil
	}

	summary, err := s.compose(ctx, teacherID, now)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Store(ctx, teacherID, now, summary, s.entryTTL(summary, now))
	return summary, false, nil
}

// entryTTL caps the configured TTL at the first instant any listed batch
// changes status.
func (s *DashboardService) entryTTL(summary *dto.TeacherDashboardResponse, now time.Time) time.Duration {
	ttl := s.cfg.CacheTTL
	for _, view := range summary.Batches {
		next, ok := nextStatusChange(view.StartDate, view.EndDate, now)
		if !ok {
			continue
		}
		if until := next.Sub(now); until < ttl {
			ttl = until
		}
	}
	return ttl
}

func (s *DashboardService) compose(ctx context.Context, teacherID string, now time.Time) (*dto.TeacherDashboardResponse, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		return nil, mapTeacherLookupError(err)
	}
	batches, err := s.batches.List(ctx, models.BatchFilter{TeacherID: teacherID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list teacher batches")
	}

	summary := &dto.TeacherDashboardResponse{
		TeacherID:     teacher.ID,
		Name:          teacher.Name,
		TotalEarnings: teacher.TotalEarnings,
		BatchCounts: map[models.BatchStatus]int{
			models.BatchStatusUpcoming:  0,
			models.BatchStatusOngoing:   0,
			models.BatchStatusCompleted: 0,
		},
		Batches:     make([]models.BatchView, 0, len(batches)),
		GeneratedAt: now,
	}
	var total, teacherShare, platformShare float64
	for _, batch := range batches {
		view := projectBatch(batch, s.allocator, now)
		summary.Batches = append(summary.Batches, view)
		summary.BatchCounts[view.Status]++
		total += view.Revenue
		teacherShare += view.TeacherShare
		platformShare += view.PlatformShare
	}
	summary.Revenue = dto.RevenueSummary{
		Total:         revenue.Round2(total),
		TeacherShare:  revenue.Round2(teacherShare),
		PlatformShare: revenue.Round2(platformShare),
	}
	return summary, nil
}

func mapTeacherLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return appErrors.Internal(err, "failed to load teacher")
}
