package models

import (
	"time"

	"github.com/lib/pq"
)

// Student is a learner linked to any number of teachers.
type Student struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Email      string         `db:"email" json:"email"`
	TeacherIDs pq.StringArray `db:"teacher_ids" json:"teachers"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}
