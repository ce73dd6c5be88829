package port

import (
	"context"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
)

// ContentStore persists immutable content snapshots. The interface exposes no
// update or delete: once written a snapshot never changes.
type ContentStore interface {
	// Put stores the content as a new snapshot and returns its identifier.
	Put(ctx context.Context, content domain.DocumentContent) (string, error)
	// Get returns the snapshot with the given id, or repository.ErrNotFound.
	Get(ctx context.Context, contentID string) (*domain.ContentSnapshot, error)
}
