package ledger

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	accountsChannel = "ledger.accounts"
	paymentsChannel = "ledger.payments"
)

// Unsubscribe tears down a live subscription. It must be called when the
// consuming view is no longer active, otherwise the watcher goroutine keeps
// pushing into a dead callback.
type Unsubscribe func()

// Feed fans ledger changes out to live subscribers over Redis pub/sub.
// Writers publish after their transaction commits; watchers re-query the
// ordered result set on every notification, so subscribers always observe a
// consistent snapshot rather than incremental deltas.
type Feed struct {
	client *redis.Client
	logger *slog.Logger
}

// NewFeed constructs a Feed.
func NewFeed(client *redis.Client, logger *slog.Logger) *Feed {
	return &Feed{client: client, logger: logger}
}

// AccountChanged announces that an account row was created or updated.
func (f *Feed) AccountChanged(ctx context.Context, accountID string) {
	f.publish(ctx, accountsChannel, accountID)
}

// PaymentRecorded announces a new payment under the given account. Account
// state changes in the same transaction, so both channels fire.
func (f *Feed) PaymentRecorded(ctx context.Context, accountID string) {
	f.publish(ctx, paymentsChannel, accountID)
	f.publish(ctx, accountsChannel, accountID)
}

func (f *Feed) publish(ctx context.Context, channel, payload string) {
	if f == nil || f.client == nil {
		return
	}
	if err := f.client.Publish(ctx, channel, payload).Err(); err != nil {
		f.logger.Warn("ledger feed publish failed",
			slog.String("channel", channel), slog.Any("error", err))
	}
}

// watch subscribes to a channel and invokes handler for each message until
// the returned Unsubscribe is called or ctx is cancelled.
func (f *Feed) watch(ctx context.Context, channel string, handler func(payload string)) Unsubscribe {
	if f == nil || f.client == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	pubsub := f.client.Subscribe(ctx, channel)

	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(msg.Payload)
			}
		}
	}()

	return func() {
		cancel()
	}
}
