package enrollment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/madaris-app/madaris/internal/shared"
)

// RepositoryPort defines data access methods for enrollments.
type RepositoryPort interface {
	Create(ctx context.Context, e *Enrollment) error
	Get(ctx context.Context, id string) (*Enrollment, error)
	FindByStudentAndClass(ctx context.Context, studentID, classID string) (*Enrollment, error)
	SetStatus(ctx context.Context, id string, status Status, enrolledAt *time.Time) error
	ListByClass(ctx context.Context, classID string) ([]Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
	ActiveStudentIDs(ctx context.Context, classID string) ([]string, error)
}

// ScheduleExpander rebuilds a class's timetable after enrollment changes.
// Implemented by the classes service; wired at startup.
type ScheduleExpander interface {
	ExpandClassSchedule(ctx context.Context, classID string) error
}

// Service owns enrollment rules: one enrollment per student per class,
// timetable and student-count refresh on every change.
type Service struct {
	repo     RepositoryPort
	expander ScheduleExpander
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service. expander may be nil in tests.
func NewService(repo RepositoryPort, expander ScheduleExpander, logger *slog.Logger) *Service {
	return &Service{repo: repo, expander: expander, logger: logger, now: time.Now}
}

// Enroll places a student in a class. A dropped enrollment is reactivated;
// an already-active one is a conflict.
func (s *Service) Enroll(ctx context.Context, studentID, classID string) (*Enrollment, error) {
	ve := &shared.ValidationError{}
	if studentID == "" {
		ve.Add("student_id", "required")
	}
	if classID == "" {
		ve.Add("class_id", "required")
	}
	if !ve.Empty() {
		return nil, ve
	}

	existing, err := s.repo.FindByStudentAndClass(ctx, studentID, classID)
	switch {
	case err == nil:
		if existing.Status == StatusActive {
			return nil, shared.ErrConflict
		}
		now := s.now()
		if err := s.repo.SetStatus(ctx, existing.ID, StatusActive, &now); err != nil {
			return nil, err
		}
		existing.Status = StatusActive
		existing.EnrolledAt = now
		s.refreshClass(ctx, classID)
		return existing, nil
	case errors.Is(err, shared.ErrNotFound):
		e := &Enrollment{
			ID:         uuid.NewString(),
			StudentID:  studentID,
			ClassID:    classID,
			EnrolledAt: s.now(),
			Status:     StatusActive,
		}
		if err := s.repo.Create(ctx, e); err != nil {
			return nil, err
		}
		s.refreshClass(ctx, classID)
		return e, nil
	default:
		return nil, err
	}
}

// Withdraw drops a student from a class.
func (s *Service) Withdraw(ctx context.Context, studentID, classID string) error {
	return s.transition(ctx, studentID, classID, StatusDropped)
}

// Complete marks a student's enrollment as finished.
func (s *Service) Complete(ctx context.Context, studentID, classID string) error {
	return s.transition(ctx, studentID, classID, StatusCompleted)
}

func (s *Service) transition(ctx context.Context, studentID, classID string, to Status) error {
	ve := &shared.ValidationError{}
	if studentID == "" {
		ve.Add("student_id", "required")
	}
	if classID == "" {
		ve.Add("class_id", "required")
	}
	if !ve.Empty() {
		return ve
	}

	e, err := s.repo.FindByStudentAndClass(ctx, studentID, classID)
	if err != nil {
		return err
	}
	if e.Status != StatusActive {
		return shared.ErrConflict
	}
	if err := s.repo.SetStatus(ctx, e.ID, to, nil); err != nil {
		return err
	}
	s.refreshClass(ctx, classID)
	return nil
}

// ListByClass returns a class's enrollments, newest first.
func (s *Service) ListByClass(ctx context.Context, classID string) ([]Enrollment, error) {
	if classID == "" {
		return nil, shared.NewValidationError("class_id", "required")
	}
	return s.repo.ListByClass(ctx, classID)
}

// ListByStudent returns a student's enrollments, newest first.
func (s *Service) ListByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	if studentID == "" {
		return nil, shared.NewValidationError("student_id", "required")
	}
	return s.repo.ListByStudent(ctx, studentID)
}

// StudentIDsByClass returns the actively enrolled student IDs of a class,
// which is what the timetable fan-out consumes.
func (s *Service) StudentIDsByClass(ctx context.Context, classID string) ([]string, error) {
	return s.repo.ActiveStudentIDs(ctx, classID)
}

// IsEnrolled reports whether the student holds an active enrollment in the
// class.
func (s *Service) IsEnrolled(ctx context.Context, studentID, classID string) (bool, error) {
	e, err := s.repo.FindByStudentAndClass(ctx, studentID, classID)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Status == StatusActive, nil
}

func (s *Service) refreshClass(ctx context.Context, classID string) {
	if s.expander == nil {
		return
	}
	if err := s.expander.ExpandClassSchedule(ctx, classID); err != nil {
		s.logger.Warn("timetable refresh after enrollment change failed",
			slog.String("class_id", classID), slog.Any("error", err))
	}
}
