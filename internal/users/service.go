package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/madaris-app/madaris/internal/rbac"
	"github.com/madaris-app/madaris/internal/shared"
)

// RepositoryPort defines data access methods for user accounts.
type RepositoryPort interface {
	List(ctx context.Context, filters Filters) ([]User, error)
	Get(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// Service owns account management rules. Credential checks live in the
// auth module; this service only stores hashes, never plaintext.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateInput collects the values for a new account.
type CreateInput struct {
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        rbac.Role `json:"role"`
	Password    string    `json:"password"`
}

// Create registers an account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput) (*User, error) {
	ve := &shared.ValidationError{}
	email := strings.TrimSpace(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		ve.Add("email", "valid email required")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		ve.Add("display_name", "required")
	}
	if !input.Role.Valid() {
		ve.Add("role", "unknown role")
	}
	if len(input.Password) < 8 {
		ve.Add("password", "must be at least 8 characters")
	}
	if !ve.Empty() {
		return nil, ve
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		DisplayName:  input.DisplayName,
		Role:         input.Role,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, u.ID)
}

// Patch carries a partial account update; nil fields are left alone.
type Patch struct {
	DisplayName *string    `json:"display_name"`
	Role        *rbac.Role `json:"role"`
	IsActive    *bool      `json:"is_active"`
}

// Update applies a partial update. Email is immutable once created.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*User, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	ve := &shared.ValidationError{}
	if patch.DisplayName != nil && strings.TrimSpace(*patch.DisplayName) == "" {
		ve.Add("display_name", "must not be blank")
	}
	if patch.Role != nil && !patch.Role.Valid() {
		ve.Add("role", "unknown role")
	}
	if !ve.Empty() {
		return nil, ve
	}

	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns accounts matching the filters.
func (s *Service) List(ctx context.Context, filters Filters) ([]User, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	return s.repo.Get(ctx, id)
}

// AccountByEmail returns the credential view the auth module signs in with.
func (s *Service) AccountByEmail(ctx context.Context, email string) (id, role, passwordHash string, active bool, err error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", "", "", false, err
	}
	return u.ID, string(u.Role), u.PasswordHash, u.IsActive, nil
}

// SetPasswordHash stores a new credential hash for an account.
func (s *Service) SetPasswordHash(ctx context.Context, id, hash string) error {
	if id == "" || hash == "" {
		return shared.NewValidationError("id", "required")
	}
	return s.repo.SetPasswordHash(ctx, id, hash)
}
