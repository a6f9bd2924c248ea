package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	"github.com/noah-isme/cohort-admin-api/pkg/revenue"
)

const dateOnlyLayout = "2006-01-02"

// DeriveBatchStatus maps a batch's date range onto its lifecycle status at now.
// Both boundaries count as ongoing. Instants are compared, never calendar days.
func DeriveBatchStatus(start, end, now time.Time) models.BatchStatus {
	switch {
	case now.Before(start):
		return models.BatchStatusUpcoming
	case now.After(end):
		return models.BatchStatusCompleted
	default:
		return models.BatchStatusOngoing
	}
}

// nextStatusChange returns the first instant after now at which
// DeriveBatchStatus gives a different answer. Completed batches never change.
func nextStatusChange(start, end, now time.Time) (time.Time, bool) {
	switch {
	case now.Before(start):
		return start, true
	case now.After(end):
		return time.Time{}, false
	default:
		return end.Add(time.Nanosecond), true
	}
}

// projectBatch attaches the read-time status and revenue shares to a batch.
func projectBatch(batch models.Batch, allocator *revenue.Allocator, now time.Time) models.BatchView {
	shares := allocator.Allocate(batch.Revenue)
	return models.BatchView{
		Batch:         batch,
		Status:        DeriveBatchStatus(batch.StartDate, batch.EndDate, now),
		TeacherShare:  shares.TeacherShare,
		PlatformShare: shares.PlatformShare,
	}
}

// parseBatchDate accepts RFC 3339 instants or bare YYYY-MM-DD dates. Bare
// dates are anchored in UTC; an end date covers the whole day.
func parseBatchDate(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.ParseInLocation(dateOnlyLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}
