package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/cohort-admin-api/internal/models"
)

const teacherColumns = "id, name, email, phone, specialization, status, total_earnings, role, password_hash, created_at, updated_at"

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns every teacher, newest first.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers ORDER BY created_at DESC", teacherColumns)
	teachers := []models.Teacher{}
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByEmail fetches a teacher by email, ignoring case.
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE LOWER(email) = LOWER($1)", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, email); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByEmail checks if another teacher uses the same email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return true, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, name, email, phone, specialization, status, total_earnings, role, password_hash, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :specialization, :status, :total_earnings, :role, :password_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies the editable profile fields of a teacher.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET name = :name, email = :email, phone = :phone, specialization = :specialization, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// UpdateEarnings persists a recomputed earnings total. Concurrent writers are
// not coordinated; the last write wins.
func (r *TeacherRepository) UpdateEarnings(ctx context.Context, id string, total float64) error {
	const query = `UPDATE teachers SET total_earnings = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, total, time.Now().UTC()); err != nil {
		return fmt.Errorf("update teacher earnings: %w", err)
	}
	return nil
}

// DeleteWithReferences removes a teacher and sweeps dangling references in one
// transaction: batches lose their teacher and students drop the teacher from
// their list. Neither batches nor students are deleted. Returns sql.ErrNoRows
// when the teacher does not exist.
func (r *TeacherRepository) DeleteWithReferences(ctx context.Context, id string) (sweep models.TeacherSweep, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return sweep, fmt.Errorf("begin delete teacher: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return sweep, fmt.Errorf("delete teacher: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return sweep, fmt.Errorf("delete teacher rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return sweep, err
	}

	res, err = tx.ExecContext(ctx, `UPDATE batches SET teacher_id = NULL, updated_at = $2 WHERE teacher_id = $1`, id, time.Now().UTC())
	if err != nil {
		return sweep, fmt.Errorf("unassign teacher batches: %w", err)
	}
	if sweep.BatchesUnassigned, err = res.RowsAffected(); err != nil {
		return sweep, fmt.Errorf("unassign teacher batches rows: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM student_teachers WHERE teacher_id = $1`, id)
	if err != nil {
		return sweep, fmt.Errorf("detach teacher students: %w", err)
	}
	if sweep.StudentsDetached, err = res.RowsAffected(); err != nil {
		return sweep, fmt.Errorf("detach teacher students rows: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return sweep, fmt.Errorf("commit delete teacher: %w", err)
	}
	return sweep, nil
}
