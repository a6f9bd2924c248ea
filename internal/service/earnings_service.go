package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
	"github.com/noah-isme/cohort-admin-api/pkg/jobs"
	"github.com/noah-isme/cohort-admin-api/pkg/revenue"
)

// JobTypeRecomputeEarnings identifies queued earnings recomputations.
const JobTypeRecomputeEarnings = "earnings.recompute"

const (
	triggerList  = "list"
	triggerQueue = "queue"
	triggerSync  = "sync"
)

type earningsTeacherRepository interface {
	List(ctx context.Context) ([]models.Teacher, error)
	UpdateEarnings(ctx context.Context, id string, total float64) error
}

type earningsStudentRepository interface {
	ListIDsByTeacher(ctx context.Context, teacherID string) ([]string, error)
	ListTeacherIDs(ctx context.Context, studentID string) ([]string, error)
}

type earningsSaleRepository interface {
	ListCompletedAmounts(ctx context.Context, studentIDs []string) ([]float64, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (bool, error)
}

// EarningsService derives teacher earnings from their students' completed
// sales and persists the result on the teacher record.
type EarningsService struct {
	teachers  earningsTeacherRepository
	students  earningsStudentRepository
	sales     earningsSaleRepository
	allocator *revenue.Allocator
	cache     *DashboardCache
	metrics   *MetricsService
	logger    *zap.Logger
	queue     jobEnqueuer
}

// NewEarningsService constructs an EarningsService. Without a queue attached
// every scheduled recompute runs inline.
func NewEarningsService(teachers earningsTeacherRepository, students earningsStudentRepository, sales earningsSaleRepository, allocator *revenue.Allocator, cache *DashboardCache, metrics *MetricsService, logger *zap.Logger) *EarningsService {
	if allocator == nil {
		allocator = revenue.NewAllocator(revenue.DefaultRates())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EarningsService{
		teachers:  teachers,
		students:  students,
		sales:     sales,
		allocator: allocator,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// AttachQueue routes scheduled recomputes through q.
func (s *EarningsService) AttachQueue(q jobEnqueuer) {
	s.queue = q
}

// RecomputeTeacher recalculates and stores one teacher's earnings.
func (s *EarningsService) RecomputeTeacher(ctx context.Context, teacherID string) (float64, error) {
	return s.recompute(ctx, teacherID, triggerSync)
}

// RecomputeAll recalculates earnings for every teacher and returns the
// refreshed listing. The first failure aborts the whole pass. Dashboards of
// teachers whose total moved are evicted.
func (s *EarningsService) RecomputeAll(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list teachers")
	}
	for i := range teachers {
		total, err := s.recompute(ctx, teachers[i].ID, triggerList)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to recompute teacher earnings")
		}
		if total != teachers[i].TotalEarnings {
			_ = s.cache.Evict(ctx, teachers[i].ID)
		}
		teachers[i].TotalEarnings = total
	}
	return teachers, nil
}

// ScheduleForStudent queues a recompute for every teacher linked to the
// student. Keyed jobs coalesce, so bursts of sale updates collapse into one
// pass per teacher.
func (s *EarningsService) ScheduleForStudent(ctx context.Context, studentID string) error {
	teacherIDs, err := s.students.ListTeacherIDs(ctx, studentID)
	if err != nil {
		return fmt.Errorf("list student teachers: %w", err)
	}
	for _, teacherID := range teacherIDs {
		if s.queue == nil {
			if _, err := s.recompute(ctx, teacherID, triggerSync); err != nil {
				return err
			}
			_ = s.cache.Evict(ctx, teacherID)
			continue
		}
		accepted, err := s.queue.Enqueue(jobs.Job{
			Key:     "earnings:" + teacherID,
			Type:    JobTypeRecomputeEarnings,
			Payload: teacherID,
		})
		if err != nil {
			return fmt.Errorf("enqueue earnings recompute: %w", err)
		}
		if accepted {
			s.metrics.RecordEarningsScheduled()
		}
	}
	return nil
}

// HandleJob is the queue handler for JobTypeRecomputeEarnings.
func (s *EarningsService) HandleJob(ctx context.Context, job jobs.Job) error {
	teacherID, ok := job.Payload.(string)
	if !ok || teacherID == "" {
		s.logger.Error("dropping malformed earnings job", zap.String("key", job.Key), zap.String("type", job.Type))
		return nil
	}
	total, err := s.recompute(ctx, teacherID, triggerQueue)
	if err != nil {
		return err
	}
	s.logger.Debug("teacher earnings recomputed", zap.String("teacher_id", teacherID), zap.Float64("total_earnings", total))
	_ = s.cache.Evict(ctx, teacherID)
	return nil
}

func (s *EarningsService) recompute(ctx context.Context, teacherID, trigger string) (total float64, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveEarningsRecompute(trigger, err, time.Since(start))
	}()

	studentIDs, err := s.students.ListIDsByTeacher(ctx, teacherID)
	if err != nil {
		return 0, err
	}
	amounts, err := s.sales.ListCompletedAmounts(ctx, studentIDs)
	if err != nil {
		return 0, err
	}
	total = s.allocator.Earnings(amounts)
	if err = s.teachers.UpdateEarnings(ctx, teacherID, total); err != nil {
		return 0, err
	}
	return total, nil
}
