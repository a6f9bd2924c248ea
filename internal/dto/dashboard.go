package dto

import (
	"time"

	"github.com/noah-isme/cohort-admin-api/internal/models"
)

// TeacherDashboardResponse summarises a teacher's batches and earnings.
type TeacherDashboardResponse struct {
	TeacherID     string                     `json:"teacherId"`
	Name          string                     `json:"name"`
	TotalEarnings float64                    `json:"totalEarnings"`
	BatchCounts   map[models.BatchStatus]int `json:"batchCounts"`
	Revenue       RevenueSummary             `json:"revenue"`
	Batches       []models.BatchView         `json:"batches"`
	GeneratedAt   time.Time                  `json:"generatedAt"`
}

// RevenueSummary totals the projected shares across a teacher's batches.
type RevenueSummary struct {
	Total         float64 `json:"total"`
	TeacherShare  float64 `json:"teacherShare"`
	PlatformShare float64 `json:"platformShare"`
}
