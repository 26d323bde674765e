package teachers

import "time"

// TeacherStatus tracks a teacher's employment state.
type TeacherStatus string

const (
	StatusActive   TeacherStatus = "Active"
	StatusOnLeave  TeacherStatus = "On Leave"
	StatusInactive TeacherStatus = "Inactive"
)

// Valid reports whether s is a known status.
func (s TeacherStatus) Valid() bool {
	switch s {
	case StatusActive, StatusOnLeave, StatusInactive:
		return true
	}
	return false
}

// Teacher is a member of the teaching staff.
type Teacher struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	Subject        string        `json:"subject"`
	Status         TeacherStatus `json:"status"`
	AuthID         string        `json:"auth_id,omitempty"`
	Phone          string        `json:"phone,omitempty"`
	Qualifications string        `json:"qualifications,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Filters narrows teacher listings.
type Filters struct {
	Subject string
	Status  TeacherStatus
	Search  string
}
