package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
	"github.com/mugiisha/sop-sub001/internal/core/port"
	"github.com/mugiisha/sop-sub001/internal/infra/config"
)

const schemaVersion = "1.0"

// EventTypeDocumentReverted tags outbound revert notifications.
const EventTypeDocumentReverted = "sop.document.reverted"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	DocumentID string           `json:"document_id,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	Version    string           `json:"version"`
	Payload    any              `json:"payload"`
	Metadata   envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, documentID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:    id,
		EventType:  eventType,
		DocumentID: documentID,
		Timestamp:  ts.UTC(),
		Version:    schemaVersion,
		Payload:    payload,
		Metadata:   metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	// Keyed by document id so downstream consumers observe per-document order.
	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(documentID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishDocumentReverted publishes sop.document.reverted events. The payload
// mirrors the inbound document schema so the owner of the live copy can apply
// it directly.
func (p *EventPublisher) PublishDocumentReverted(ctx context.Context, event domain.DocumentRevertedEvent) error {
	payload := struct {
		ID            string    `json:"id"`
		VersionNumber int64     `json:"version_number"`
		Title         string    `json:"title"`
		Description   string    `json:"description"`
		Body          string    `json:"body"`
		Category      string    `json:"category"`
		DepartmentID  string    `json:"departmentId"`
		Visibility    string    `json:"visibility"`
		CoverURL      string    `json:"coverUrl"`
		DocumentURLs  []string  `json:"documentUrls"`
		CapturedAt    time.Time `json:"capturedAt"`
		RevertedAt    time.Time `json:"revertedAt"`
	}{
		ID:            event.DocumentID,
		VersionNumber: event.VersionNumber,
		Title:         event.Content.Title,
		Description:   event.Content.Description,
		Body:          event.Content.Body,
		Category:      event.Content.Category,
		DepartmentID:  event.Content.DepartmentID,
		Visibility:    event.Content.Visibility,
		CoverURL:      event.Content.CoverURL,
		DocumentURLs:  event.Content.DocumentURLs,
		CapturedAt:    event.Content.CapturedAt.UTC(),
		RevertedAt:    event.RevertedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventTypeDocumentReverted, event.DocumentID, event.RevertedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
