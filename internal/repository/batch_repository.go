package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/cohort-admin-api/internal/models"
)

const batchSelect = `SELECT b.id, b.batch_name, b.teacher_id, t.name AS teacher_name, b.start_date, b.end_date,
	b.schedule_days, b.session_time, b.session_topic, b.total_students, b.revenue, b.created_at, b.updated_at
	FROM batches b
	LEFT JOIN teachers t ON t.id = b.teacher_id`

// BatchRepository manages persistence for batches.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns batches ordered by start date. Status filtering happens after
// projection because status is not stored.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("b.teacher_id = $%d", len(args)))
	}

	query := batchSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.start_date ASC, b.created_at ASC"

	batches := []models.Batch{}
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// FindByID fetches a batch by ID including its teacher's name.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, batchSelect+" WHERE b.id = $1", id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// Create inserts a new batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	const query = `INSERT INTO batches (id, batch_name, teacher_id, start_date, end_date, schedule_days, session_time, session_topic, total_students, revenue, created_at, updated_at)
		VALUES (:id, :batch_name, :teacher_id, :start_date, :end_date, :schedule_days, :session_time, :session_topic, :total_students, :revenue, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a batch.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET batch_name = :batch_name, teacher_id = :teacher_id, start_date = :start_date, end_date = :end_date,
		schedule_days = :schedule_days, session_time = :session_time, session_topic = :session_topic,
		total_students = :total_students, revenue = :revenue, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// Delete removes a batch.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}
