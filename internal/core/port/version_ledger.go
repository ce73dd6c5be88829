package port

import (
	"context"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
)

// VersionLedger persists the ordered version records of each document and
// owns the exactly-one-current invariant. Mutations flip the current flag on
// exactly two rows inside one atomic unit; no observer ever sees two current
// versions, nor zero once a document has at least one.
type VersionLedger interface {
	// Current returns the version marked current for the document, or
	// repository.ErrNotFound if the document has no versions.
	Current(ctx context.Context, documentID string) (*domain.Version, error)
	// ByNumber returns a specific version, or repository.ErrNotFound.
	ByNumber(ctx context.Context, documentID string, number int64) (*domain.Version, error)
	// ListByDocument returns all versions ascending by number. An unknown
	// document yields an empty slice, not an error.
	ListByDocument(ctx context.Context, documentID string) ([]domain.Version, error)
	// AppendAndPromote creates the next version for the document (starting at
	// 1) marked current, clearing the previous current flag in the same
	// transaction. Contention surfaces as repository.ErrConflict.
	AppendAndPromote(ctx context.Context, documentID, contentID string) (*domain.Version, error)
	// Promote re-points the current flag at an existing version without
	// creating a new row or renumbering anything.
	Promote(ctx context.Context, documentID string, number int64) (*domain.Version, error)
}
