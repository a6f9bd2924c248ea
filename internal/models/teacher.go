package models

import "time"

// TeacherStatus captures whether a teacher is accepting batches.
type TeacherStatus string

const (
	TeacherStatusActive   TeacherStatus = "active"
	TeacherStatusInactive TeacherStatus = "inactive"
)

// Role identifies the kind of principal stored in the teachers table.
type Role string

const (
	RoleTeacher Role = "Teacher"
	RoleMentor  Role = "Mentor"
	RoleAdmin   Role = "Admin"
)

// Teacher represents an instructor account. TotalEarnings is derived from the
// completed sales of the teacher's students and persisted on recompute.
type Teacher struct {
	ID             string        `db:"id" json:"id"`
	Name           string        `db:"name" json:"name"`
	Email          string        `db:"email" json:"email"`
	Phone          string        `db:"phone" json:"phone"`
	Specialization string        `db:"specialization" json:"specialization"`
	Status         TeacherStatus `db:"status" json:"status"`
	TotalEarnings  float64       `db:"total_earnings" json:"totalEarnings"`
	Role           Role          `db:"role" json:"role"`
	PasswordHash   string        `db:"password_hash" json:"-"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

// TeacherSweep reports the references cleared when a teacher is deleted.
type TeacherSweep struct {
	BatchesUnassigned int64 `json:"batchesUnassigned"`
	StudentsDetached  int64 `json:"studentsDetached"`
}
