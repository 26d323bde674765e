package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/madaris-app/madaris/internal/shared"
	"github.com/madaris-app/madaris/jobs"
)

const (
	resetKeyPrefix = "madaris:pwreset:"
	resetTTL       = 30 * time.Minute
)

// AccountSource looks up credentials. The users service implements it;
// auth never touches the users table directly.
type AccountSource interface {
	AccountByEmail(ctx context.Context, email string) (id, role, passwordHash string, active bool, err error)
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// Service wraps authentication rules: credential checks, the session
// audit trail and the password reset flow.
type Service struct {
	accounts AccountSource
	repo     Repository
	redis    *redis.Client
	tasks    *asynq.Client
	logger   *slog.Logger
}

// NewService builds a Service.
func NewService(accounts AccountSource, repo Repository, rdb *redis.Client, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, repo: repo, redis: rdb, logger: logger}
}

// WithTaskClient wires the background queue used for reset emails.
func (s *Service) WithTaskClient(client *asynq.Client) *Service {
	s.tasks = client
	return s
}

// Authenticate validates email/password credentials. Every failure mode
// collapses to ErrInvalidCredentials so callers cannot probe accounts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	id, role, hash, active, err := s.accounts.AccountByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !active {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return &Identity{ID: id, Email: email, Role: role}, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// RequestPasswordReset issues a single-use reset token and queues the
// email. An unknown address succeeds silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return shared.NewValidationError("email", "required")
	}
	id, _, _, active, err := s.accounts.AccountByEmail(ctx, email)
	if err != nil || !active {
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, resetKeyPrefix+token, id, resetTTL).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", errors.Join(shared.ErrUnavailable, err))
	}
	s.enqueueResetMail(email, token)
	return nil
}

// ConfirmPasswordReset consumes a reset token and stores the new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	ve := &shared.ValidationError{}
	if token == "" {
		ve.Add("token", "required")
	}
	if len(password) < 8 {
		ve.Add("password", "must be at least 8 characters")
	}
	if !ve.Empty() {
		return ve
	}

	id, err := s.redis.GetDel(ctx, resetKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.ErrNotFound
		}
		return fmt.Errorf("consume reset token: %w", errors.Join(shared.ErrUnavailable, err))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.accounts.SetPasswordHash(ctx, id, string(hash))
}

func (s *Service) enqueueResetMail(email, token string) {
	if s.tasks == nil {
		return
	}
	task, err := jobs.NewSendEmailTask(jobs.SendEmailPayload{
		To:      email,
		Subject: "Password reset",
		Body:    "Use this code to reset your password: " + token,
	})
	if err != nil {
		s.logger.Error("build reset mail task", slog.Any("error", err))
		return
	}
	if _, err := s.tasks.Enqueue(task, asynq.Queue(jobs.QueueDefault)); err != nil {
		s.logger.Warn("enqueue reset mail", slog.Any("error", err))
	}
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
