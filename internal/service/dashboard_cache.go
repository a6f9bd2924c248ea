package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cohort-admin-api/internal/dto"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
)

// dashboardNamespace labels dashboard cache metrics.
const dashboardNamespace = "dashboard"

// CacheRepository is the key/value store behind DashboardCache.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DashboardCache keeps composed teacher dashboards, one entry per teacher
// per UTC day. A nil *DashboardCache behaves as a disabled cache.
type DashboardCache struct {
	repo    CacheRepository
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
}

// NewDashboardCache wires the dashboard cache onto repo.
func NewDashboardCache(repo CacheRepository, metrics *MetricsService, logger *zap.Logger, enabled bool) *DashboardCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardCache{repo: repo, metrics: metrics, logger: logger, enabled: enabled}
}

// DashboardKey names the entry for teacherID on day's UTC date.
func DashboardKey(teacherID string, day time.Time) string {
	return fmt.Sprintf("dash:teacher:%s:%s", teacherID, day.UTC().Format(dateOnlyLayout))
}

func dashboardKeyPattern(teacherID string) string {
	return fmt.Sprintf("dash:teacher:%s:*", teacherID)
}

// Enabled reports whether reads and writes reach the store.
func (c *DashboardCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

// Load reads teacherID's entry for day into dest and reports a hit. A miss
// is not an error; a store failure is returned and counted as a miss.
func (c *DashboardCache) Load(ctx context.Context, teacherID string, day time.Time, dest *dto.TeacherDashboardResponse) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	key := DashboardKey(teacherID, day)
	start := time.Now()
	err := c.repo.Get(ctx, key, dest)
	c.metrics.RecordCacheOperation(dashboardNamespace, err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		c.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Store writes summary as teacherID's entry for day. Entries with a
// non-positive ttl would expire on arrival and are skipped.
func (c *DashboardCache) Store(ctx context.Context, teacherID string, day time.Time, summary *dto.TeacherDashboardResponse, ttl time.Duration) error {
	if !c.Enabled() || ttl <= 0 {
		return nil
	}
	key := DashboardKey(teacherID, day)
	start := time.Now()
	err := c.repo.Set(ctx, key, summary, ttl)
	c.metrics.ObserveCacheWrite(dashboardNamespace, time.Since(start))
	if err != nil {
		c.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Duration("ttl", ttl), zap.Error(err))
	}
	return err
}

// Evict drops every day's entry for the given teachers. Blank and repeated
// ids are skipped. All teachers are attempted; the first failure is returned.
func (c *DashboardCache) Evict(ctx context.Context, teacherIDs ...string) error {
	if !c.Enabled() {
		return nil
	}
	var firstErr error
	seen := make(map[string]struct{}, len(teacherIDs))
	for _, id := range teacherIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := c.repo.DeleteByPattern(ctx, dashboardKeyPattern(id)); err != nil {
			c.logger.Warn("dashboard cache evict failed", zap.String("teacher_id", id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.metrics.RecordCacheEviction(dashboardNamespace)
	}
	return firstErr
}
