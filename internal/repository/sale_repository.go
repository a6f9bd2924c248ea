package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/cohort-admin-api/internal/models"
)

const saleColumns = "id, student_id, amount, status, created_at, updated_at"

// SaleRepository manages persistence for sales.
type SaleRepository struct {
	db *sqlx.DB
}

// NewSaleRepository constructs a SaleRepository.
func NewSaleRepository(db *sqlx.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// List returns sales matching the filter, newest first.
func (r *SaleRepository) List(ctx context.Context, filter models.SaleFilter) ([]models.Sale, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM sales", saleColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	sales := []models.Sale{}
	if err := r.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

// FindByID fetches a sale by ID.
func (r *SaleRepository) FindByID(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	query := fmt.Sprintf("SELECT %s FROM sales WHERE id = $1", saleColumns)
	if err := r.db.GetContext(ctx, &sale, query, id); err != nil {
		return nil, err
	}
	return &sale, nil
}

// Create inserts a new sale.
func (r *SaleRepository) Create(ctx context.Context, sale *models.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sale.CreatedAt = now
	sale.UpdatedAt = now

	const query = `INSERT INTO sales (id, student_id, amount, status, created_at, updated_at)
		VALUES (:id, :student_id, :amount, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sale); err != nil {
		return fmt.Errorf("create sale: %w", err)
	}
	return nil
}

// UpdateStatus changes the status of a sale.
func (r *SaleRepository) UpdateStatus(ctx context.Context, id string, status models.SaleStatus) error {
	const query = `UPDATE sales SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}
	return nil
}

// ListCompletedAmounts returns the amounts of completed sales for the given
// students. An empty input yields no amounts without touching the database.
func (r *SaleRepository) ListCompletedAmounts(ctx context.Context, studentIDs []string) ([]float64, error) {
	amounts := []float64{}
	if len(studentIDs) == 0 {
		return amounts, nil
	}
	const query = `SELECT amount FROM sales WHERE student_id = ANY($1) AND status = $2`
	if err := r.db.SelectContext(ctx, &amounts, query, pq.Array(studentIDs), models.SaleStatusCompleted); err != nil {
		return nil, fmt.Errorf("list completed sale amounts: %w", err)
	}
	return amounts, nil
}
