package students

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/madaris-app/madaris/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]*Student
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]*Student)}
}

func (r *memoryRepo) List(ctx context.Context, filters Filters) ([]Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Student
	for _, st := range r.items {
		if filters.Grade != "" && st.Grade != filters.Grade {
			continue
		}
		if filters.ParentID != "" && st.ParentID != filters.ParentID {
			continue
		}
		if filters.Status != "" && st.Status != filters.Status {
			continue
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *st
	return &clone, nil
}

func (r *memoryRepo) Create(ctx context.Context, st *Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st.CreatedAt = time.Now()
	st.UpdatedAt = st.CreatedAt
	clone := *st
	r.items[st.ID] = &clone
	return nil
}

func (r *memoryRepo) Update(ctx context.Context, st *Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[st.ID]; !ok {
		return shared.ErrNotFound
	}
	st.UpdatedAt = time.Now()
	clone := *st
	r.items[st.ID] = &clone
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, logger), repo
}

func TestCreateDefaultsToActive(t *testing.T) {
	svc, _ := newTestService()

	st, err := svc.Create(context.Background(), CreateInput{Name: "Omar Said", Grade: "Grade 3"})
	require.NoError(t, err)
	require.Equal(t, StatusActive, st.Status)
	require.NotEmpty(t, st.ID)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{Grade: "Grade 3"})
	require.True(t, shared.IsValidation(err))

	_, err = svc.Create(context.Background(), CreateInput{Name: "Omar", Grade: "Grade 3", Status: "Expelled"})
	require.True(t, shared.IsValidation(err))
}

func TestUpdatePartial(t *testing.T) {
	svc, _ := newTestService()

	st, err := svc.Create(context.Background(), CreateInput{Name: "Omar Said", Grade: "Grade 3"})
	require.NoError(t, err)

	grade := "Grade 4"
	updated, err := svc.Update(context.Background(), st.ID, Patch{Grade: &grade})
	require.NoError(t, err)
	require.Equal(t, "Grade 4", updated.Grade)
	require.Equal(t, "Omar Said", updated.Name, "untouched field keeps its value")

	blank := " "
	_, err = svc.Update(context.Background(), st.ID, Patch{Name: &blank})
	require.True(t, shared.IsValidation(err))

	_, err = svc.Update(context.Background(), "absent", Patch{Grade: &grade})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListFiltersByParent(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{Name: "A", Grade: "Grade 1", ParentID: "parent-1"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Name: "B", Grade: "Grade 2", ParentID: "parent-2"})
	require.NoError(t, err)

	kids, err := svc.List(context.Background(), Filters{ParentID: "parent-1"})
	require.NoError(t, err)
	require.Len(t, kids, 1)
	require.Equal(t, "A", kids[0].Name)
}

func TestSnapshot(t *testing.T) {
	svc, _ := newTestService()

	st, err := svc.Create(context.Background(), CreateInput{Name: "Huda", Grade: "Grade 6"})
	require.NoError(t, err)

	name, grade, err := svc.Snapshot(context.Background(), st.ID)
	require.NoError(t, err)
	require.Equal(t, "Huda", name)
	require.Equal(t, "Grade 6", grade)

	_, _, err = svc.Snapshot(context.Background(), "absent")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
