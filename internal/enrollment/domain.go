package enrollment

import "time"

// Status is an enrollment lifecycle state.
type Status string

const (
	StatusActive    Status = "Active"
	StatusDropped   Status = "Dropped"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDropped, StatusCompleted:
		return true
	}
	return false
}

// Enrollment links a student to a class. A student holds at most one
// enrollment per class; dropping and re-enrolling reuses the same row.
type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ClassID    string    `json:"class_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
