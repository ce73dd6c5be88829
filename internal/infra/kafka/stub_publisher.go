package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
	"github.com/mugiisha/sop-sub001/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, documentID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("document_id", documentID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishDocumentReverted logs sop.document.reverted events.
func (p *StubPublisher) PublishDocumentReverted(_ context.Context, event domain.DocumentRevertedEvent) error {
	payload := map[string]any{
		"id":             event.DocumentID,
		"version_number": event.VersionNumber,
		"title":          event.Content.Title,
		"body":           event.Content.Body,
		"reverted_at":    event.RevertedAt,
	}
	p.logEvent(EventTypeDocumentReverted, event.DocumentID, event.RevertedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
