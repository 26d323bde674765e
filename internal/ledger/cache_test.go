package ledger

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestReportCache(t *testing.T) (*ReportCache, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewReportCache(client, time.Minute)
	return cache, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestReportCacheFetchCachesUntilBump(t *testing.T) {
	cache, cleanup := newTestReportCache(t)
	defer cleanup()

	ctx := context.Background()
	calls := 0
	loader := func(context.Context) ([]MonthlyReportRow, error) {
		calls++
		return []MonthlyReportRow{{
			Month:       "2024-01",
			TotalDue:    d("1500"),
			TotalPaid:   d("1000"),
			Outstanding: d("500"),
		}}, nil
	}

	rows, err := cache.Fetch(ctx, loader)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, calls)

	// Second fetch is served from redis.
	rows, err = cache.Fetch(ctx, loader)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].TotalDue.Equal(d("1500")), "decimal survives the cache round trip")
	require.Equal(t, 1, calls)

	// A bump retires every key built against the old version.
	require.NoError(t, cache.Bump(ctx))
	_, err = cache.Fetch(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestReportCacheMonthBoundaryRetiresKey(t *testing.T) {
	cache, cleanup := newTestReportCache(t)
	defer cleanup()

	clock := date(2024, time.January, 31)
	cache.WithClock(func() time.Time { return clock })

	ctx := context.Background()
	calls := 0
	loader := func(context.Context) ([]MonthlyReportRow, error) {
		calls++
		return []MonthlyReportRow{{Month: "2024-01"}}, nil
	}

	_, err := cache.Fetch(ctx, loader)
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// Crossing into February shifts the bucket set, so the cached January
	// report must not be served.
	clock = date(2024, time.February, 1)
	_, err = cache.Fetch(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestReportCacheNilClientFallsThrough(t *testing.T) {
	cache := NewReportCache(nil, time.Minute)

	ctx := context.Background()
	calls := 0
	loader := func(context.Context) ([]MonthlyReportRow, error) {
		calls++
		return nil, nil
	}

	require.NoError(t, cache.Bump(ctx))
	for i := 0; i < 3; i++ {
		_, err := cache.Fetch(ctx, loader)
		require.NoError(t, err)
	}
	require.Equal(t, 3, calls)

	var unset *ReportCache
	require.NoError(t, unset.Bump(ctx))
	_, err := unset.Fetch(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 4, calls)
}
