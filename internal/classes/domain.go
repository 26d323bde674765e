package classes

import "time"

// Class is a taught group of students. TeacherName is a snapshot taken when
// the class is created or reassigned, mirroring how the ledger snapshots
// student names. Students is a maintained count of active enrollments.
type Class struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Grade                 string     `json:"grade"`
	TeacherID             string     `json:"teacher_id"`
	TeacherName           string     `json:"teacher_name"`
	Students              int        `json:"students"`
	Schedule              string     `json:"schedule"`
	Room                  string     `json:"room,omitempty"`
	Capacity              int        `json:"capacity,omitempty"`
	CurriculumURL         string     `json:"curriculum_url,omitempty"`
	CurriculumFileName    string     `json:"curriculum_file_name,omitempty"`
	CurriculumStoragePath string     `json:"curriculum_storage_path,omitempty"`
	CurriculumUpdatedAt   *time.Time `json:"curriculum_updated_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Weekday is a full day name as shown on the timetable.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Ordinal gives the timetable sort position, Monday first.
func (d Weekday) Ordinal() int {
	switch d {
	case Monday:
		return 0
	case Tuesday:
		return 1
	case Wednesday:
		return 2
	case Thursday:
		return 3
	case Friday:
		return 4
	case Saturday:
		return 5
	case Sunday:
		return 6
	}
	return 7
}

// ScheduleEntry is one timetable slot, fanned out per weekday and per
// enrolled student from a class's schedule string. StudentID is empty on the
// class-level entry used when nobody is enrolled yet.
type ScheduleEntry struct {
	ID           string    `json:"id"`
	ClassID      string    `json:"class_id"`
	StudentID    string    `json:"student_id,omitempty"`
	TeacherID    string    `json:"teacher_id"`
	Day          Weekday   `json:"day"`
	Time         string    `json:"time"`
	StartMinutes int       `json:"-"`
	Subject      string    `json:"subject"`
	Teacher      string    `json:"teacher"`
	Room         string    `json:"room"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Filters narrows class listings.
type Filters struct {
	Grade     string
	TeacherID string
	Search    string
}
