package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestFeed(t *testing.T) (*Feed, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFeed(client, logger), func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestSubscribeAccountsPushesSnapshots(t *testing.T) {
	feed, cleanup := newTestFeed(t)
	defer cleanup()

	repo := newMemoryLedgerRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, feed, nil, nil, logger).
		WithClock(func() time.Time { return date(2024, time.August, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pushes atomic.Int64
	var lastLen atomic.Int64
	unsub := svc.SubscribeAccounts(ctx, func(accounts []FinancialAccount) {
		pushes.Add(1)
		lastLen.Store(int64(len(accounts)))
	}, func(err error) {
		t.Errorf("unexpected subscription error: %v", err)
	})
	defer unsub()

	require.Equal(t, int64(1), pushes.Load(), "initial snapshot is pushed synchronously")
	require.Equal(t, int64(0), lastLen.Load())

	_, err := svc.CreateAccount(ctx, validAccountInput())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return pushes.Load() >= 2 && lastLen.Load() == 1
	}, 2*time.Second, 10*time.Millisecond, "account creation reaches the subscriber")
}

type listHookRepo struct {
	*memoryLedgerRepo
	onList func()
}

func (r *listHookRepo) ListAccounts(ctx context.Context) ([]FinancialAccount, error) {
	if r.onList != nil {
		r.onList()
	}
	return r.memoryLedgerRepo.ListAccounts(ctx)
}

func TestSubscribeAccountsCatchesWriteDuringInitialSnapshot(t *testing.T) {
	feed, cleanup := newTestFeed(t)
	defer cleanup()

	repo := &listHookRepo{memoryLedgerRepo: newMemoryLedgerRepo()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, feed, nil, nil, logger).
		WithClock(func() time.Time { return date(2024, time.August, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first snapshot read races a concurrent account change. The
	// change must still reach the subscriber as a follow-up push.
	var fired atomic.Bool
	repo.onList = func() {
		if fired.CompareAndSwap(false, true) {
			feed.AccountChanged(ctx, "student-1")
		}
	}

	var pushes atomic.Int64
	unsub := svc.SubscribeAccounts(ctx, func([]FinancialAccount) {
		pushes.Add(1)
	}, func(err error) {
		t.Errorf("unexpected subscription error: %v", err)
	})
	defer unsub()

	require.Eventually(t, func() bool {
		return pushes.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond, "concurrent write produces a follow-up push")
}

func TestSubscribePaymentsFiltersByAccount(t *testing.T) {
	feed, cleanup := newTestFeed(t)
	defer cleanup()

	repo := newMemoryLedgerRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, feed, nil, nil, logger).
		WithClock(func() time.Time { return date(2024, time.August, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := validAccountInput()
	second := validAccountInput()
	second.StudentID = "student-2"
	_, err := svc.CreateAccount(ctx, first)
	require.NoError(t, err)
	_, err = svc.CreateAccount(ctx, second)
	require.NoError(t, err)

	var pushes atomic.Int64
	unsub := svc.SubscribePayments(ctx, "student-1", func([]FinancialPayment) {
		pushes.Add(1)
	}, func(err error) {
		t.Errorf("unexpected subscription error: %v", err)
	})
	defer unsub()
	require.Equal(t, int64(1), pushes.Load())

	// Payment against the other account stays silent for this subscriber,
	// payment against the watched one comes through.
	_, err = svc.RecordPayment(ctx, RecordPaymentInput{
		AccountID: "student-2", Amount: d("100"), Method: MethodCash,
	})
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, RecordPaymentInput{
		AccountID: "student-1", Amount: d("100"), Method: MethodCash,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return pushes.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int64(2), pushes.Load(), "foreign-account payment did not push")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	feed, cleanup := newTestFeed(t)
	defer cleanup()

	ctx := context.Background()
	var seen atomic.Int64
	unsub := feed.watch(ctx, accountsChannel, func(string) { seen.Add(1) })

	feed.AccountChanged(ctx, "student-1")
	require.Eventually(t, func() bool {
		return seen.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	unsub()
	before := seen.Load()
	feed.AccountChanged(ctx, "student-1")
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, before, seen.Load())
}
