package enrollment

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/madaris-app/madaris/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]*Enrollment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]*Enrollment)}
}

func (r *memoryRepo) Create(ctx context.Context, e *Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.items {
		if stored.StudentID == e.StudentID && stored.ClassID == e.ClassID {
			return shared.ErrConflict
		}
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	clone := *e
	r.items[e.ID] = &clone
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *memoryRepo) FindByStudentAndClass(ctx context.Context, studentID, classID string) (*Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.items {
		if e.StudentID == studentID && e.ClassID == classID {
			clone := *e
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) SetStatus(ctx context.Context, id string, status Status, enrolledAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	e.Status = status
	if enrolledAt != nil {
		e.EnrolledAt = *enrolledAt
	}
	e.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepo) ListByClass(ctx context.Context, classID string) ([]Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Enrollment
	for _, e := range r.items {
		if e.ClassID == classID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Enrollment
	for _, e := range r.items {
		if e.StudentID == studentID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memoryRepo) ActiveStudentIDs(ctx context.Context, classID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.items {
		if e.ClassID == classID && e.Status == StatusActive {
			out = append(out, e.StudentID)
		}
	}
	return out, nil
}

type recordingExpander struct {
	mu    sync.Mutex
	calls []string
}

func (x *recordingExpander) ExpandClassSchedule(ctx context.Context, classID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls = append(x.calls, classID)
	return nil
}

func newTestService() (*Service, *memoryRepo, *recordingExpander) {
	repo := newMemoryRepo()
	expander := &recordingExpander{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, expander, logger), repo, expander
}

func TestEnrollAndDuplicate(t *testing.T) {
	svc, _, expander := newTestService()
	ctx := context.Background()

	e, err := svc.Enroll(ctx, "student-1", "class-1")
	require.NoError(t, err)
	require.Equal(t, StatusActive, e.Status)
	require.Equal(t, []string{"class-1"}, expander.calls, "timetable refreshed on enroll")

	_, err = svc.Enroll(ctx, "student-1", "class-1")
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestWithdrawAndReenroll(t *testing.T) {
	svc, _, expander := newTestService()
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "student-1", "class-1")
	require.NoError(t, err)
	require.NoError(t, svc.Withdraw(ctx, "student-1", "class-1"))

	enrolled, err := svc.IsEnrolled(ctx, "student-1", "class-1")
	require.NoError(t, err)
	require.False(t, enrolled)

	// Re-enrolling reactivates the same row.
	e, err := svc.Enroll(ctx, "student-1", "class-1")
	require.NoError(t, err)
	require.Equal(t, StatusActive, e.Status)

	list, err := svc.ListByStudent(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, expander.calls, 3, "every change refreshes the timetable")
}

func TestWithdrawInactive(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	err := svc.Withdraw(ctx, "student-1", "class-1")
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Enroll(ctx, "student-1", "class-1")
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, "student-1", "class-1"))
	require.ErrorIs(t, svc.Withdraw(ctx, "student-1", "class-1"), shared.ErrConflict)
}

func TestStudentIDsByClass(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "student-1", "class-1")
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, "student-2", "class-1")
	require.NoError(t, err)
	require.NoError(t, svc.Withdraw(ctx, "student-2", "class-1"))

	ids, err := svc.StudentIDsByClass(ctx, "class-1")
	require.NoError(t, err)
	require.Equal(t, []string{"student-1"}, ids)
}

func TestEnrollValidation(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Enroll(context.Background(), "", "")
	require.True(t, shared.IsValidation(err))
}
