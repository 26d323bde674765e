package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SMTPConfig points the mail handler at a relay. An empty Host means no
// relay is provisioned and deliveries are logged instead of sent.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

func (c SMTPConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c SMTPConfig) message(payload SendEmailPayload) []byte {
	return []byte("From: " + c.From + "\r\n" +
		"To: " + payload.To + "\r\n" +
		"Subject: " + payload.Subject + "\r\n" +
		"\r\n" +
		payload.Body + "\r\n")
}

// NewSendEmailHandler processes TaskTypeSendEmail tasks through the
// configured relay.
func NewSendEmailHandler(cfg SMTPConfig, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if cfg.Host == "" {
			if logger != nil {
				logger.Info("mail relay not configured, delivery skipped",
					slog.String("to", payload.To), slog.String("subject", payload.Subject))
			}
			return nil
		}
		if err := smtp.SendMail(cfg.addr(), nil, cfg.From, []string{payload.To}, cfg.message(payload)); err != nil {
			return fmt.Errorf("jobs: send email: %w", err)
		}
		if logger != nil {
			logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
		}
		return nil
	}
}
