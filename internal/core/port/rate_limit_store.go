package port

import (
	"context"
	"time"
)

// RateLimitStore records timestamped attempts per identifier and answers
// sliding-window queries. The revert endpoint throttle is its only consumer;
// entries older than the window are trimmed before counting.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
