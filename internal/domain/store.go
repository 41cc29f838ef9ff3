package domain

import (
	"context"
	"io"
	"time"
)

// ActivityStore is the trade ledger gateway. It journals observed target
// activity and records terminal copy dispositions.
type ActivityStore interface {
	// InsertIfNew inserts the activity unless a row with the same
	// transaction hash already exists. Returns true when a row was inserted.
	InsertIfNew(ctx context.Context, act Activity) (bool, error)

	// ListUnprocessed returns unprocessed trade rows whose retry counter is
	// below the given limit, newest timestamp first.
	ListUnprocessed(ctx context.Context, retryLimit, limit int) ([]Activity, error)

	// MarkProcessed flips the row to processed and persists the final retry
	// counter. Exactly one terminal disposition per row.
	MarkProcessed(ctx context.Context, id int64, retryCount int) error

	// ListProcessedBefore returns processed rows older than the cutoff, for
	// cold-storage archival.
	ListProcessedBefore(ctx context.Context, cutoff time.Time) ([]Activity, error)

	// DeleteProcessedBefore prunes processed rows older than the cutoff and
	// returns how many were removed.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MarketCache caches CLOB market metadata keyed by condition ID so token-id
// resolution does not refetch the token table on every loop iteration.
type MarketCache interface {
	Get(ctx context.Context, conditionID string) (Market, error)
	Set(ctx context.Context, market Market) error
}

// LockManager provides distributed locks. The copy loop acquires one at
// startup so no second instance can replicate the same ledger concurrently.
type LockManager interface {
	// Acquire obtains the lock or returns ErrLockHeld. The returned function
	// releases the lock and is safe to call multiple times.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter throttles calls against a shared sliding window, keyed by the
// resource being protected. Order submission uses it so a burst of copied
// trades cannot trip the venue's request limits.
type RateLimiter interface {
	// Allow reports whether one more request fits in the window, counting it
	// if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Wait blocks until a request for the key is allowed or ctx is cancelled.
	Wait(ctx context.Context, key string) error
}

// BlobWriter uploads archive objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
