package teachers

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
	items map[string]*Teacher
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]*Teacher)}
}

func (r *memoryRepo) List(ctx context.Context, filters Filters) ([]Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Teacher
	for _, tch := range r.items {
		if filters.Subject != "" && tch.Subject != filters.Subject {
			continue
		}
		if filters.Status != "" && tch.Status != filters.Status {
			continue
		}
		out = append(out, *tch)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tch, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *tch
	return &clone, nil
}

func (r *memoryRepo) Create(ctx context.Context, tch *Teacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tch.CreatedAt = time.Now()
	tch.UpdatedAt = tch.CreatedAt
	clone := *tch
	r.items[tch.ID] = &clone
	return nil
}

func (r *memoryRepo) Update(ctx context.Context, tch *Teacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tch.ID]; !ok {
		return shared.ErrNotFound
	}
	tch.UpdatedAt = time.Now()
	clone := *tch
	r.items[tch.ID] = &clone
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

func newTestService() *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(newMemoryRepo(), logger)
}

func TestCreateDefaultsToActive(t *testing.T) {
	svc := newTestService()

	tch, err := svc.Create(context.Background(), CreateInput{Name: "Fatima", Subject: "Mathematics"})
	require.NoError(t, err)
	require.Equal(t, StatusActive, tch.Status)
	require.NotEmpty(t, tch.ID)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{Subject: "Science"})
	require.True(t, shared.IsValidation(err))

	_, err = svc.Create(context.Background(), CreateInput{Name: "Khalid"})
	require.True(t, shared.IsValidation(err))

	_, err = svc.Create(context.Background(), CreateInput{Name: "Khalid", Subject: "Science", Status: "Retired"})
	require.True(t, shared.IsValidation(err))
}

func TestUpdatePartial(t *testing.T) {
	svc := newTestService()

	tch, err := svc.Create(context.Background(), CreateInput{Name: "Fatima", Subject: "Mathematics"})
	require.NoError(t, err)

	onLeave := StatusOnLeave
	updated, err := svc.Update(context.Background(), tch.ID, Patch{Status: &onLeave})
	require.NoError(t, err)
	require.Equal(t, StatusOnLeave, updated.Status)
	require.Equal(t, "Mathematics", updated.Subject, "untouched field keeps its value")

	_, err = svc.Update(context.Background(), "absent", Patch{Status: &onLeave})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestName(t *testing.T) {
	svc := newTestService()

	tch, err := svc.Create(context.Background(), CreateInput{Name: "Khalid Al-Otaibi", Subject: "Science"})
	require.NoError(t, err)

	name, err := svc.Name(context.Background(), tch.ID)
	require.NoError(t, err)
	require.Equal(t, "Khalid Al-Otaibi", name)

	_, err = svc.Name(context.Background(), "absent")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	svc := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{Name: "A", Subject: "Math"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Name: "B", Subject: "Art", Status: StatusInactive})
	require.NoError(t, err)

	active, err := svc.List(context.Background(), Filters{Status: StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "A", active[0].Name)

	_, err = svc.List(context.Background(), Filters{Status: "Fired"})
	require.True(t, shared.IsValidation(err))
}

func TestDelete(t *testing.T) {
	svc := newTestService()

	tch, err := svc.Create(context.Background(), CreateInput{Name: "Fatima", Subject: "Mathematics"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), tch.ID))

	_, err = svc.Get(context.Background(), tch.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.ErrorIs(t, svc.Delete(context.Background(), tch.ID), shared.ErrNotFound)
}
