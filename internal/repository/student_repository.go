package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/cohort-admin-api/internal/models"
)

const studentSelect = `SELECT s.id, s.name, s.email, s.created_at, s.updated_at,
	COALESCE(array_agg(st.teacher_id::text) FILTER (WHERE st.teacher_id IS NOT NULL), '{}') AS teacher_ids
	FROM students s
	LEFT JOIN student_teachers st ON st.student_id = s.id`

const studentGroupBy = " GROUP BY s.id, s.name, s.email, s.created_at, s.updated_at"

// StudentRepository manages persistence for students and their teacher links.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns all students with their linked teacher ids.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	students := []models.Student{}
	query := studentSelect + studentGroupBy + " ORDER BY s.created_at DESC"
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student with linked teacher ids.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	query := studentSelect + " WHERE s.id = $1" + studentGroupBy
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a student and its teacher links in one transaction.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (err error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertStudent = `INSERT INTO students (id, name, email, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insertStudent, student.ID, student.Name, student.Email, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	const insertLink = `INSERT INTO student_teachers (student_id, teacher_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, teacherID := range student.TeacherIDs {
		if _, err = tx.ExecContext(ctx, insertLink, student.ID, teacherID); err != nil {
			return fmt.Errorf("link student teacher: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create student: %w", err)
	}
	return nil
}

// ListIDsByTeacher returns the ids of students linked to a teacher.
func (r *StudentRepository) ListIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	ids := []string{}
	const query = `SELECT student_id FROM student_teachers WHERE teacher_id = $1 ORDER BY student_id`
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher students: %w", err)
	}
	return ids, nil
}

// ListTeacherIDs returns the teachers linked to a student.
func (r *StudentRepository) ListTeacherIDs(ctx context.Context, studentID string) ([]string, error) {
	ids := []string{}
	const query = `SELECT teacher_id FROM student_teachers WHERE student_id = $1 ORDER BY teacher_id`
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list student teachers: %w", err)
	}
	return ids, nil
}
