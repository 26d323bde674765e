package users

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/madaris-app/madaris/internal/rbac"
	"github.com/madaris-app/madaris/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]*User)}
}

func (r *memoryRepo) List(ctx context.Context, filters Filters) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.items {
		if filters.Role != "" && u.Role != filters.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if strings.EqualFold(existing.Email, u.Email) {
			return shared.ErrConflict
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	clone := *u
	r.items[u.ID] = &clone
	return nil
}

func (r *memoryRepo) Update(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[u.ID]; !ok {
		return shared.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	clone := *u
	r.items[u.ID] = &clone
	return nil
}

func (r *memoryRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	return nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, logger), repo
}

func TestCreateHashesPassword(t *testing.T) {
	svc, _ := newTestService()

	u, err := svc.Create(context.Background(), CreateInput{
		Email:       "Amal@School.sa",
		DisplayName: "Amal",
		Role:        rbac.RoleAccountant,
		Password:    "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, "amal@school.sa", u.Email)
	require.True(t, u.IsActive)
	require.NotEqual(t, "correct horse", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()

	cases := []CreateInput{
		{Email: "no-at-sign", DisplayName: "A", Role: rbac.RoleAdmin, Password: "longenough"},
		{Email: "a@b.c", DisplayName: " ", Role: rbac.RoleAdmin, Password: "longenough"},
		{Email: "a@b.c", DisplayName: "A", Role: "principal", Password: "longenough"},
		{Email: "a@b.c", DisplayName: "A", Role: rbac.RoleAdmin, Password: "short"},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), input)
		require.True(t, shared.IsValidation(err), "input %+v", input)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()

	input := CreateInput{Email: "a@b.c", DisplayName: "A", Role: rbac.RoleTeacher, Password: "longenough"}
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	input.DisplayName = "Other"
	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateRoleAndDeactivate(t *testing.T) {
	svc, _ := newTestService()

	u, err := svc.Create(context.Background(), CreateInput{
		Email: "a@b.c", DisplayName: "A", Role: rbac.RoleTeacher, Password: "longenough",
	})
	require.NoError(t, err)

	role := rbac.RoleAdmin
	inactive := false
	updated, err := svc.Update(context.Background(), u.ID, Patch{Role: &role, IsActive: &inactive})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleAdmin, updated.Role)
	require.False(t, updated.IsActive)
	require.Equal(t, "A", updated.DisplayName, "untouched field keeps its value")

	bad := rbac.Role("janitor")
	_, err = svc.Update(context.Background(), u.ID, Patch{Role: &bad})
	require.True(t, shared.IsValidation(err))
}

func TestAccountByEmail(t *testing.T) {
	svc, _ := newTestService()

	u, err := svc.Create(context.Background(), CreateInput{
		Email: "a@b.c", DisplayName: "A", Role: rbac.RoleParent, Password: "longenough",
	})
	require.NoError(t, err)

	id, role, hash, active, err := svc.AccountByEmail(context.Background(), "A@B.C")
	require.NoError(t, err)
	require.Equal(t, u.ID, id)
	require.Equal(t, string(rbac.RoleParent), role)
	require.NotEmpty(t, hash)
	require.True(t, active)

	_, _, _, _, err = svc.AccountByEmail(context.Background(), "nobody@b.c")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
