package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const reportVersionKey = "ledger:report:version"

// ReportCache keeps the monthly report in Redis behind a version counter.
// Every committed ledger write bumps the version, which retires all keys
// built against the previous one. Misses fall through to the loader.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewReportCache instantiates the cache helper. A nil client disables
// caching entirely, which the accessors tolerate.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl, now: time.Now}
}

// WithClock overrides the cache clock. Tests use this to cross month
// boundaries.
func (c *ReportCache) WithClock(now func() time.Time) *ReportCache {
	c.now = now
	return c
}

// Bump invalidates all cached reports.
func (c *ReportCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, reportVersionKey).Err()
}

// Fetch loads the cached report for the current version, or computes it via
// the loader and stores the result.
func (c *ReportCache) Fetch(ctx context.Context, loader func(context.Context) ([]MonthlyReportRow, error)) ([]MonthlyReportRow, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	key, err := c.key(ctx)
	if err != nil {
		return loader(ctx)
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rows []MonthlyReportRow
		if jsonErr := json.Unmarshal(data, &rows); jsonErr == nil {
			return rows, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}

	rows, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rows); err == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return rows, nil
}

func (c *ReportCache) key(ctx context.Context) (string, error) {
	ver, err := c.client.Get(ctx, reportVersionKey).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return "", err
		}
		ver = 1
		if err := c.client.Set(ctx, reportVersionKey, ver, 0).Err(); err != nil {
			return "", err
		}
	}
	// The month set shifts when the wall clock crosses a month boundary, so
	// the current month is part of the key.
	return "ledger:report:" + c.now().UTC().Format(monthKeyLayout) + ":" + strconv.FormatInt(ver, 10), nil
}
