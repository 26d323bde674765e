package teachers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/madaris-app/madaris/internal/shared"
)

// RepositoryPort defines data access methods for teachers.
type RepositoryPort interface {
	List(ctx context.Context, filters Filters) ([]Teacher, error)
	Get(ctx context.Context, id string) (*Teacher, error)
	Create(ctx context.Context, tch *Teacher) error
	Update(ctx context.Context, tch *Teacher) error
	Delete(ctx context.Context, id string) error
}

// Service owns teaching-staff lifecycle rules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateInput collects the values to register a teacher.
type CreateInput struct {
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	Subject        string        `json:"subject"`
	Status         TeacherStatus `json:"status"`
	AuthID         string        `json:"auth_id"`
	Phone          string        `json:"phone"`
	Qualifications string        `json:"qualifications"`
}

// Create registers a teacher. Status defaults to Active.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Teacher, error) {
	ve := &shared.ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		ve.Add("name", "required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		ve.Add("subject", "required")
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
	tch := &Teacher{
		ID:             uuid.NewString(),
		Name:           input.Name,
		Email:          input.Email,
		Subject:        input.Subject,
		Status:         status,
		AuthID:         input.AuthID,
		Phone:          input.Phone,
		Qualifications: input.Qualifications,
	}
	if err := s.repo.Create(ctx, tch); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, tch.ID)
}

// Patch carries a partial teacher update; nil fields are left alone.
type Patch struct {
	Name           *string        `json:"name"`
	Email          *string        `json:"email"`
	Subject        *string        `json:"subject"`
	Status         *TeacherStatus `json:"status"`
	AuthID         *string        `json:"auth_id"`
	Phone          *string        `json:"phone"`
	Qualifications *string        `json:"qualifications"`
}

// Update applies a partial update to a teacher.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Teacher, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	ve := &shared.ValidationError{}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		ve.Add("name", "must not be blank")
	}
	if patch.Subject != nil && strings.TrimSpace(*patch.Subject) == "" {
		ve.Add("subject", "must not be blank")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		ve.Add("status", "unknown status")
	}
	if !ve.Empty() {
		return nil, ve
	}

	tch, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		tch.Name = *patch.Name
	}
	if patch.Email != nil {
		tch.Email = *patch.Email
	}
	if patch.Subject != nil {
		tch.Subject = *patch.Subject
	}
	if patch.Status != nil {
		tch.Status = *patch.Status
	}
	if patch.AuthID != nil {
		tch.AuthID = *patch.AuthID
	}
	if patch.Phone != nil {
		tch.Phone = *patch.Phone
	}
	if patch.Qualifications != nil {
		tch.Qualifications = *patch.Qualifications
	}
	if err := s.repo.Update(ctx, tch); err != nil {
		return nil, err
	}
	return tch, nil
}

// Get fetches one teacher.
func (s *Service) Get(ctx context.Context, id string) (*Teacher, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	return s.repo.Get(ctx, id)
}

// List returns teachers matching the filters, newest first.
func (s *Service) List(ctx context.Context, filters Filters) ([]Teacher, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, shared.NewValidationError("status", "unknown status")
	}
	return s.repo.List(ctx, filters)
}

// Name resolves a teacher's display name, used by classes to snapshot it.
func (s *Service) Name(ctx context.Context, id string) (string, error) {
	tch, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return tch.Name, nil
}

// Delete removes a teacher record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return shared.NewValidationError("id", "required")
	}
	return s.repo.Delete(ctx, id)
}
