package port

import (
	"context"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
)

// EventPublisher emits outbound notifications to the message bus. Delivery is
// best-effort: a failed publish never rolls back the committed mutation that
// produced it.
type EventPublisher interface {
	PublishDocumentReverted(ctx context.Context, event domain.DocumentRevertedEvent) error
}
