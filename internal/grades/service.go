package grades

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/madaris-app/madaris/internal/shared"
)

// RepositoryPort defines data access methods for grades.
type RepositoryPort interface {
	Create(ctx context.Context, g *Grade) error
	Get(ctx context.Context, id string) (*Grade, error)
	Update(ctx context.Context, g *Grade) error
	Delete(ctx context.Context, id string) error
	ListByStudent(ctx context.Context, studentID string) ([]Grade, error)
	ListByClass(ctx context.Context, classID string) ([]Grade, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]Grade, error)
}

// Service owns grading rules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateInput collects the values for one scored assessment.
type CreateInput struct {
	StudentID string         `json:"student_id"`
	ClassID   string         `json:"class_id"`
	Subject   string         `json:"subject"`
	TeacherID string         `json:"teacher_id"`
	Score     float64        `json:"score"`
	MaxScore  float64        `json:"max_score"`
	Type      AssessmentType `json:"type"`
	Date      time.Time      `json:"date"`
	Notes     string         `json:"notes"`
}

// Create records a grade. The percentage is derived from score/maxScore.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Grade, error) {
	ve := &shared.ValidationError{}
	if input.StudentID == "" {
		ve.Add("student_id", "required")
	}
	if input.ClassID == "" {
		ve.Add("class_id", "required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		ve.Add("subject", "required")
	}
	if input.Score < 0 {
		ve.Add("score", "must not be negative")
	}
	if input.MaxScore <= 0 {
		ve.Add("max_score", "must be positive")
	}
	if input.MaxScore > 0 && input.Score > input.MaxScore {
		ve.Add("score", "must not exceed max_score")
	}
	if !input.Type.Valid() {
		ve.Add("type", "unknown assessment type")
	}
	if !ve.Empty() {
		return nil, ve
	}

	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	g := &Grade{
		ID:         uuid.NewString(),
		StudentID:  input.StudentID,
		ClassID:    input.ClassID,
		Subject:    input.Subject,
		TeacherID:  input.TeacherID,
		Score:      input.Score,
		MaxScore:   input.MaxScore,
		Percentage: Percent(input.Score, input.MaxScore),
		Type:       input.Type,
		Date:       date,
		Notes:      input.Notes,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, g.ID)
}

// Patch carries a partial grade update; nil fields are left alone.
type Patch struct {
	Subject  *string         `json:"subject"`
	Score    *float64        `json:"score"`
	MaxScore *float64        `json:"max_score"`
	Type     *AssessmentType `json:"type"`
	Date     *time.Time      `json:"date"`
	Notes    *string         `json:"notes"`
}

// Update applies a partial update. Touching the score or max score
// recomputes the stored percentage from the merged values.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Grade, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	ve := &shared.ValidationError{}
	if patch.Score != nil && *patch.Score < 0 {
		ve.Add("score", "must not be negative")
	}
	if patch.MaxScore != nil && *patch.MaxScore <= 0 {
		ve.Add("max_score", "must be positive")
	}
	if patch.Type != nil && !patch.Type.Valid() {
		ve.Add("type", "unknown assessment type")
	}
	if !ve.Empty() {
		return nil, ve
	}

	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Subject != nil {
		g.Subject = *patch.Subject
	}
	if patch.Score != nil {
		g.Score = *patch.Score
	}
	if patch.MaxScore != nil {
		g.MaxScore = *patch.MaxScore
	}
	if patch.Score != nil || patch.MaxScore != nil {
		if g.Score > g.MaxScore {
			return nil, shared.NewValidationError("score", "must not exceed max_score")
		}
		g.Percentage = Percent(g.Score, g.MaxScore)
	}
	if patch.Type != nil {
		g.Type = *patch.Type
	}
	if patch.Date != nil {
		g.Date = *patch.Date
	}
	if patch.Notes != nil {
		g.Notes = *patch.Notes
	}
	if err := s.repo.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Get fetches a single grade by id.
func (s *Service) Get(ctx context.Context, id string) (*Grade, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a grade.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return shared.NewValidationError("id", "required")
	}
	return s.repo.Delete(ctx, id)
}

// ListByStudent returns a student's grades, newest assessment first.
func (s *Service) ListByStudent(ctx context.Context, studentID string) ([]Grade, error) {
	if studentID == "" {
		return nil, shared.NewValidationError("student_id", "required")
	}
	return s.repo.ListByStudent(ctx, studentID)
}

// ListByClass returns a class's grades, newest assessment first.
func (s *Service) ListByClass(ctx context.Context, classID string) ([]Grade, error) {
	if classID == "" {
		return nil, shared.NewValidationError("class_id", "required")
	}
	return s.repo.ListByClass(ctx, classID)
}

// ListByTeacher returns the grades a teacher has awarded, newest first.
func (s *Service) ListByTeacher(ctx context.Context, teacherID string) ([]Grade, error) {
	if teacherID == "" {
		return nil, shared.NewValidationError("teacher_id", "required")
	}
	return s.repo.ListByTeacher(ctx, teacherID)
}
