package grades

import (
	"math"
	"time"
)

// AssessmentType classifies what a grade was awarded for.
type AssessmentType string

const (
	TypeAssignment AssessmentType = "Assignment"
	TypeQuiz       AssessmentType = "Quiz"
	TypeMidterm    AssessmentType = "Midterm"
	TypeFinal      AssessmentType = "Final"
	TypeProject    AssessmentType = "Project"
)

// Valid reports whether t is a known assessment type.
func (t AssessmentType) Valid() bool {
	switch t {
	case TypeAssignment, TypeQuiz, TypeMidterm, TypeFinal, TypeProject:
		return true
	}
	return false
}

// Grade is one scored assessment. Percentage is derived from Score/MaxScore
// and stored alongside so listings never recompute it.
type Grade struct {
	ID         string         `json:"id"`
	StudentID  string         `json:"student_id"`
	ClassID    string         `json:"class_id"`
	Subject    string         `json:"subject"`
	TeacherID  string         `json:"teacher_id"`
	Score      float64        `json:"score"`
	MaxScore   float64        `json:"max_score"`
	Percentage float64        `json:"percentage"`
	Type       AssessmentType `json:"type"`
	Date       time.Time      `json:"date"`
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Percent computes the rounded percentage for a score.
func Percent(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return math.Round(score/maxScore*10000) / 100
}
