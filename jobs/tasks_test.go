package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestSendEmailHandlerWithoutRelay(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewSendEmailHandler(SMTPConfig{}, logger)

	task, err := NewSendEmailTask(SendEmailPayload{To: "parent@example.com", Subject: "Reset"})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
}

func TestSendEmailHandlerBadPayload(t *testing.T) {
	handler := NewSendEmailHandler(SMTPConfig{}, nil)

	err := handler(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSMTPMessageHeaders(t *testing.T) {
	cfg := SMTPConfig{Host: "relay.example.com", Port: 587, From: "no-reply@madaris.local"}
	msg := string(cfg.message(SendEmailPayload{
		To:      "parent@example.com",
		Subject: "Tuition reminder",
		Body:    "An installment is due.",
	}))

	require.Contains(t, msg, "From: no-reply@madaris.local\r\n")
	require.Contains(t, msg, "To: parent@example.com\r\n")
	require.Contains(t, msg, "Subject: Tuition reminder\r\n")
	require.Contains(t, msg, "\r\n\r\nAn installment is due.")
	require.Equal(t, "relay.example.com:587", cfg.addr())
}
