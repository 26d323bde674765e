package classes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/madaris-app/madaris/internal/shared"
	"github.com/madaris-app/madaris/internal/storage"
)

// RepositoryPort defines data access methods for classes and timetables.
type RepositoryPort interface {
	List(ctx context.Context, filters Filters) ([]Class, error)
	Get(ctx context.Context, id string) (*Class, error)
	Create(ctx context.Context, cls *Class) error
	Update(ctx context.Context, cls *Class) error
	UpdateCurriculum(ctx context.Context, id, url, fileName, storagePath string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	SetStudentCount(ctx context.Context, id string, count int) error
	ReplaceSchedules(ctx context.Context, classID string, entries []ScheduleEntry) error
	SchedulesByClass(ctx context.Context, classID string) ([]ScheduleEntry, error)
	SchedulesByStudent(ctx context.Context, studentID string) ([]ScheduleEntry, error)
	SchedulesByTeacher(ctx context.Context, teacherID string) ([]ScheduleEntry, error)
}

// EnrollmentSource supplies the active student IDs of a class for schedule
// fan-out. Implemented by the enrollment service; wired at startup.
type EnrollmentSource interface {
	StudentIDsByClass(ctx context.Context, classID string) ([]string, error)
}

// TeacherDirectory resolves teacher names for the snapshot on a class.
type TeacherDirectory interface {
	Name(ctx context.Context, teacherID string) (string, error)
}

// Service owns class lifecycle, timetable expansion, and curriculum files.
type Service struct {
	repo        RepositoryPort
	enrollments EnrollmentSource
	teachers    TeacherDirectory
	store       storage.Store
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds a Service. store may be nil when curriculum uploads are
// not served.
func NewService(repo RepositoryPort, store storage.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, logger: logger, now: time.Now}
}

// WithEnrollments attaches the enrollment source used for schedule fan-out.
func (s *Service) WithEnrollments(src EnrollmentSource) *Service {
	s.enrollments = src
	return s
}

// WithTeacherDirectory attaches the directory used to snapshot teacher names.
func (s *Service) WithTeacherDirectory(dir TeacherDirectory) *Service {
	s.teachers = dir
	return s
}

// CreateInput collects the values to open a class.
type CreateInput struct {
	Name        string `json:"name"`
	Grade       string `json:"grade"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Schedule    string `json:"schedule"`
	Room        string `json:"room"`
	Capacity    int    `json:"capacity"`
}

// Create opens a class and expands its timetable.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Class, error) {
	ve := &shared.ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		ve.Add("name", "required")
	}
	if strings.TrimSpace(input.Grade) == "" {
		ve.Add("grade", "required")
	}
	if input.TeacherID == "" {
		ve.Add("teacher_id", "required")
	}
	if input.Capacity < 0 {
		ve.Add("capacity", "must not be negative")
	}
	if input.Schedule != "" {
		if _, ok := ParseSchedule(input.Schedule); !ok {
			ve.Add("schedule", `expected format "Mon, Wed, Fri - 9:00 AM"`)
		}
	}
	if !ve.Empty() {
		return nil, ve
	}

	teacherName := input.TeacherName
	if teacherName == "" && s.teachers != nil {
		name, err := s.teachers.Name(ctx, input.TeacherID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		teacherName = name
	}

	cls := &Class{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Grade:       input.Grade,
		TeacherID:   input.TeacherID,
		TeacherName: teacherName,
		Schedule:    input.Schedule,
		Room:        input.Room,
		Capacity:    input.Capacity,
	}
	if err := s.repo.Create(ctx, cls); err != nil {
		return nil, err
	}
	if err := s.ExpandClassSchedule(ctx, cls.ID); err != nil {
		s.logger.Warn("expand schedule after create failed",
			slog.String("class_id", cls.ID), slog.Any("error", err))
	}
	return s.repo.Get(ctx, cls.ID)
}

// Patch carries a partial class update; nil fields are left alone.
type Patch struct {
	Name        *string `json:"name"`
	Grade       *string `json:"grade"`
	TeacherID   *string `json:"teacher_id"`
	TeacherName *string `json:"teacher_name"`
	Schedule    *string `json:"schedule"`
	Room        *string `json:"room"`
	Capacity    *int    `json:"capacity"`
}

// Update applies a partial update and rebuilds the timetable when anything
// that feeds it changed.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Class, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	ve := &shared.ValidationError{}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		ve.Add("name", "must not be blank")
	}
	if patch.Capacity != nil && *patch.Capacity < 0 {
		ve.Add("capacity", "must not be negative")
	}
	if patch.Schedule != nil && *patch.Schedule != "" {
		if _, ok := ParseSchedule(*patch.Schedule); !ok {
			ve.Add("schedule", `expected format "Mon, Wed, Fri - 9:00 AM"`)
		}
	}
	if !ve.Empty() {
		return nil, ve
	}

	cls, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	timetableStale := false
	if patch.Name != nil {
		cls.Name = *patch.Name
		timetableStale = true
	}
	if patch.Grade != nil {
		cls.Grade = *patch.Grade
	}
	if patch.TeacherID != nil {
		cls.TeacherID = *patch.TeacherID
		timetableStale = true
		if patch.TeacherName == nil && s.teachers != nil {
			if name, err := s.teachers.Name(ctx, *patch.TeacherID); err == nil {
				cls.TeacherName = name
			}
		}
	}
	if patch.TeacherName != nil {
		cls.TeacherName = *patch.TeacherName
		timetableStale = true
	}
	if patch.Schedule != nil {
		cls.Schedule = *patch.Schedule
		timetableStale = true
	}
	if patch.Room != nil {
		cls.Room = *patch.Room
		timetableStale = true
	}
	if patch.Capacity != nil {
		cls.Capacity = *patch.Capacity
	}
	if err := s.repo.Update(ctx, cls); err != nil {
		return nil, err
	}
	if timetableStale {
		if err := s.ExpandClassSchedule(ctx, id); err != nil {
			s.logger.Warn("expand schedule after update failed",
				slog.String("class_id", id), slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, id)
}

// Get fetches one class.
func (s *Service) Get(ctx context.Context, id string) (*Class, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	return s.repo.Get(ctx, id)
}

// List returns classes matching the filters, newest first.
func (s *Service) List(ctx context.Context, filters Filters) ([]Class, error) {
	return s.repo.List(ctx, filters)
}

// Delete removes a class, its timetable, and its curriculum file.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return shared.NewValidationError("id", "required")
	}
	cls, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if cls.CurriculumStoragePath != "" && s.store != nil {
		if err := s.store.Delete(ctx, cls.CurriculumStoragePath); err != nil {
			s.logger.Warn("delete curriculum blob failed",
				slog.String("class_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// ExpandClassSchedule rebuilds the class's timetable entries: one per
// weekday per actively enrolled student (class-level entries when nobody is
// enrolled). Also refreshes the denormalized student count.
func (s *Service) ExpandClassSchedule(ctx context.Context, classID string) error {
	cls, err := s.repo.Get(ctx, classID)
	if err != nil {
		return err
	}

	var studentIDs []string
	if s.enrollments != nil {
		studentIDs, err = s.enrollments.StudentIDsByClass(ctx, classID)
		if err != nil {
			return err
		}
	}
	if err := s.repo.SetStudentCount(ctx, classID, len(studentIDs)); err != nil {
		return err
	}
	return s.repo.ReplaceSchedules(ctx, classID, ExpandSchedule(cls, studentIDs))
}

// SetCurriculum stores an uploaded curriculum file and records it on the
// class, replacing (and removing) the previous file.
func (s *Service) SetCurriculum(ctx context.Context, classID, fileName string, r io.Reader) (*Class, error) {
	if classID == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, shared.NewValidationError("file", "file name required")
	}
	if s.store == nil {
		return nil, shared.ErrUnavailable
	}

	cls, err := s.repo.Get(ctx, classID)
	if err != nil {
		return nil, err
	}

	storagePath := path.Join("curriculum", classID, uuid.NewString()+"-"+path.Base(fileName))
	url, err := s.store.Upload(ctx, storagePath, r)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.UpdateCurriculum(ctx, classID, url, fileName, storagePath, now); err != nil {
		// Roll the orphaned blob back so storage does not leak.
		_ = s.store.Delete(ctx, storagePath)
		return nil, err
	}
	if cls.CurriculumStoragePath != "" && cls.CurriculumStoragePath != storagePath {
		if err := s.store.Delete(ctx, cls.CurriculumStoragePath); err != nil {
			s.logger.Warn("delete previous curriculum failed",
				slog.String("class_id", classID), slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, classID)
}

// SchedulesByClass returns a class's timetable.
func (s *Service) SchedulesByClass(ctx context.Context, classID string) ([]ScheduleEntry, error) {
	if classID == "" {
		return nil, shared.NewValidationError("class_id", "required")
	}
	return s.repo.SchedulesByClass(ctx, classID)
}

// SchedulesByStudent returns a student's timetable across all classes.
func (s *Service) SchedulesByStudent(ctx context.Context, studentID string) ([]ScheduleEntry, error) {
	if studentID == "" {
		return nil, shared.NewValidationError("student_id", "required")
	}
	return s.repo.SchedulesByStudent(ctx, studentID)
}

// SchedulesByTeacher returns a teacher's timetable.
func (s *Service) SchedulesByTeacher(ctx context.Context, teacherID string) ([]ScheduleEntry, error) {
	if teacherID == "" {
		return nil, shared.NewValidationError("teacher_id", "required")
	}
	return s.repo.SchedulesByTeacher(ctx, teacherID)
}
