package port

import (
	"context"
	"time"
)

// CurrentVersionCache caches the current version number per document for
// low-latency reads. The ledger stays authoritative; entries are TTL-bounded
// and refreshed after every mutation.
type CurrentVersionCache interface {
	GetCurrentVersion(ctx context.Context, documentID string) (int64, error)
	SetCurrentVersion(ctx context.Context, documentID string, number int64, ttl time.Duration) error
	DeleteCurrentVersion(ctx context.Context, documentID string) error
}
