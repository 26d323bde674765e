package students

import "time"

// StudentStatus tracks where a student sits in the school lifecycle.
type StudentStatus string

const (
	StatusActive    StudentStatus = "Active"
	StatusInactive  StudentStatus = "Inactive"
	StatusGraduated StudentStatus = "Graduated"
)

// Valid reports whether s is a known status.
func (s StudentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusGraduated:
		return true
	}
	return false
}

// Student is an enrolled pupil. ParentID links to the guardian's user
// record; AuthID links to the student's own login when one exists.
type Student struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Grade       string        `json:"grade"`
	Status      StudentStatus `json:"status"`
	AuthID      string        `json:"auth_id,omitempty"`
	ParentID    string        `json:"parent_id,omitempty"`
	Phone       string        `json:"phone,omitempty"`
	Address     string        `json:"address,omitempty"`
	DateOfBirth *time.Time    `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Filters narrows student listings.
type Filters struct {
	Grade    string
	ParentID string
	Status   StudentStatus
	Search   string
}
