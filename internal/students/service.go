package students

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/madaris-app/madaris/internal/shared"
)

// RepositoryPort defines data access methods for students.
type RepositoryPort interface {
	List(ctx context.Context, filters Filters) ([]Student, error)
	Get(ctx context.Context, id string) (*Student, error)
	Create(ctx context.Context, st *Student) error
	Update(ctx context.Context, st *Student) error
	Delete(ctx context.Context, id string) error
}

// Service owns student lifecycle rules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateInput collects the values to admit a student.
type CreateInput struct {
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Grade       string        `json:"grade"`
	Status      StudentStatus `json:"status"`
	AuthID      string        `json:"auth_id"`
	ParentID    string        `json:"parent_id"`
	Phone       string        `json:"phone"`
	Address     string        `json:"address"`
	DateOfBirth *time.Time    `json:"date_of_birth"`
}

// Create admits a student. Status defaults to Active.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Student, error) {
	ve := &shared.ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		ve.Add("name", "required")
	}
	if strings.TrimSpace(input.Grade) == "" {
		ve.Add("grade", "required")
	}
	if input.Status != "" && !input.Status.Valid() {
		ve.Add("status", "unknown status")
	}
	if !ve.Empty() {
		return nil, ve
	}

	status := input.Status
	if status == "" {
		status = StatusActive
	}
	st := &Student{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Email:       input.Email,
		Grade:       input.Grade,
		Status:      status,
		AuthID:      input.AuthID,
		ParentID:    input.ParentID,
		Phone:       input.Phone,
		Address:     input.Address,
		DateOfBirth: input.DateOfBirth,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, st.ID)
}

// Patch carries a partial student update; nil fields are left alone.
type Patch struct {
	Name        *string        `json:"name"`
	Email       *string        `json:"email"`
	Grade       *string        `json:"grade"`
	Status      *StudentStatus `json:"status"`
	AuthID      *string        `json:"auth_id"`
	ParentID    *string        `json:"parent_id"`
	Phone       *string        `json:"phone"`
	Address     *string        `json:"address"`
	DateOfBirth *time.Time     `json:"date_of_birth"`
}

// Update applies a partial update to a student.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Student, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	ve := &shared.ValidationError{}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		ve.Add("name", "must not be blank")
	}
	if patch.Grade != nil && strings.TrimSpace(*patch.Grade) == "" {
		ve.Add("grade", "must not be blank")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		ve.Add("status", "unknown status")
	}
	if !ve.Empty() {
		return nil, ve
	}

	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		st.Name = *patch.Name
	}
	if patch.Email != nil {
		st.Email = *patch.Email
	}
	if patch.Grade != nil {
		st.Grade = *patch.Grade
	}
	if patch.Status != nil {
		st.Status = *patch.Status
	}
	if patch.AuthID != nil {
		st.AuthID = *patch.AuthID
	}
	if patch.ParentID != nil {
		st.ParentID = *patch.ParentID
	}
	if patch.Phone != nil {
		st.Phone = *patch.Phone
	}
	if patch.Address != nil {
		st.Address = *patch.Address
	}
	if patch.DateOfBirth != nil {
		st.DateOfBirth = patch.DateOfBirth
	}
	if err := s.repo.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Get fetches one student.
func (s *Service) Get(ctx context.Context, id string) (*Student, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	return s.repo.Get(ctx, id)
}

// List returns students matching the filters, newest first.
func (s *Service) List(ctx context.Context, filters Filters) ([]Student, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, shared.NewValidationError("status", "unknown status")
	}
	return s.repo.List(ctx, filters)
}

// Delete removes a student record. The student's tuition account, if any,
// stays: the ledger is append-only and keeps its own name/grade snapshot.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return shared.NewValidationError("id", "required")
	}
	return s.repo.Delete(ctx, id)
}

// Snapshot returns the name and grade for a student, used when opening a
// tuition account so the ledger carries its own copy.
func (s *Service) Snapshot(ctx context.Context, id string) (name, grade string, err error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	return st.Name, st.Grade, nil
}
