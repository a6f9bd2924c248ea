package models

import (
	"time"

	"github.com/lib/pq"
)

// BatchStatus is derived from a batch's date range at read time.
type BatchStatus string

const (
	BatchStatusUpcoming  BatchStatus = "upcoming"
	BatchStatusOngoing   BatchStatus = "ongoing"
	BatchStatusCompleted BatchStatus = "completed"
)

// Valid reports whether s names a known status.
func (s BatchStatus) Valid() bool {
	switch s {
	case BatchStatusUpcoming, BatchStatusOngoing, BatchStatusCompleted:
		return true
	}
	return false
}

// Weekdays lists the accepted schedule day names in calendar order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Batch is a scheduled teaching cohort. TeacherID is a weak reference and
// becomes nil when the teacher is deleted.
type Batch struct {
	ID            string         `db:"id" json:"id"`
	BatchName     string         `db:"batch_name" json:"batchName"`
	TeacherID     *string        `db:"teacher_id" json:"teacher"`
	TeacherName   *string        `db:"teacher_name" json:"teacherName,omitempty"`
	StartDate     time.Time      `db:"start_date" json:"startDate"`
	EndDate       time.Time      `db:"end_date" json:"endDate"`
	ScheduleDays  pq.StringArray `db:"schedule_days" json:"scheduleDays"`
	SessionTime   string         `db:"session_time" json:"sessionTime"`
	SessionTopic  pq.StringArray `db:"session_topic" json:"sessionTopic"`
	TotalStudents int            `db:"total_students" json:"totalStudents"`
	Revenue       float64        `db:"revenue" json:"revenue"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// BatchView is a batch projected for display: status and revenue shares are
// computed per request and never stored.
type BatchView struct {
	Batch
	Status        BatchStatus `json:"status"`
	TeacherShare  float64     `json:"teacherShare"`
	PlatformShare float64     `json:"platformShare"`
}

// BatchFilter narrows batch listings.
type BatchFilter struct {
	TeacherID string
	Status    BatchStatus
}
