package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
)

// ErrInvalidPayload marks a message that cannot be turned into a document
// update. Such messages are logged and dropped; ingestion continues.
var ErrInvalidPayload = errors.New("kafka: invalid document payload")

// DocumentRecorder is the slice of the version service the ingestor drives.
type DocumentRecorder interface {
	RecordUpdate(ctx context.Context, documentID string, content domain.DocumentContent) (*domain.Version, error)
}

// IngestMetrics captures telemetry hooks for event consumption.
type IngestMetrics interface {
	IncConsumed()
	IncDropped()
	ObserveIngestLag(d time.Duration)
}

// DocumentConsumer turns inbound document lifecycle messages into ledger
// appends via the version service.
type DocumentConsumer struct {
	recorder DocumentRecorder
	metrics  IngestMetrics
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewDocumentConsumer constructs a consumer that records document updates.
func NewDocumentConsumer(recorder DocumentRecorder, timeout time.Duration, logger *zap.Logger) *DocumentConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	consumer := &DocumentConsumer{recorder: recorder, timeout: timeout, logger: logger}
	consumer.now = func() time.Time { return time.Now().UTC() }
	return consumer
}

// WithMetrics wires telemetry observers for ingest activity.
func (c *DocumentConsumer) WithMetrics(metrics IngestMetrics) *DocumentConsumer {
	if metrics != nil {
		c.metrics = metrics
	}
	return c
}

// WithClock overrides the consumer clock for deterministic testing.
func (c *DocumentConsumer) WithClock(clock func() time.Time) *DocumentConsumer {
	if clock != nil {
		c.now = clock
	}
	return c
}

type documentUpsertPayload struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Body         string    `json:"body"`
	Category     string    `json:"category"`
	DepartmentID string    `json:"departmentId"`
	Visibility   string    `json:"visibility"`
	CoverURL     string    `json:"coverUrl"`
	DocumentURLs []string  `json:"documentUrls"`
	PublishedAt  time.Time `json:"publishedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HandleMessage decodes a Kafka message and records the document update.
func (c *DocumentConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var payload documentUpsertPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		if c.metrics != nil {
			c.metrics.IncDropped()
		}
		return fmt.Errorf("%w: decode document event: %v", ErrInvalidPayload, err)
	}

	if strings.TrimSpace(payload.ID) == "" || strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(payload.Body) == "" {
		if c.metrics != nil {
			c.metrics.IncDropped()
		}
		return fmt.Errorf("%w: missing required fields for document %q", ErrInvalidPayload, payload.ID)
	}

	capturedAt := payload.UpdatedAt
	if capturedAt.IsZero() {
		capturedAt = payload.PublishedAt
	}
	if capturedAt.IsZero() {
		capturedAt = c.now()
	}

	return c.HandleEvent(ctx, domain.DocumentUpsertedEvent{
		DocumentID: payload.ID,
		Content: domain.DocumentContent{
			Title:        payload.Title,
			Description:  payload.Description,
			Body:         payload.Body,
			Category:     payload.Category,
			DepartmentID: payload.DepartmentID,
			Visibility:   payload.Visibility,
			CoverURL:     payload.CoverURL,
			DocumentURLs: payload.DocumentURLs,
			CapturedAt:   capturedAt.UTC(),
		},
		ReceivedAt: c.now(),
	})
}

// HandleEvent appends the document update to the version ledger.
func (c *DocumentConsumer) HandleEvent(ctx context.Context, event domain.DocumentUpsertedEvent) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	version, err := c.recorder.RecordUpdate(ctx, event.DocumentID, event.Content)
	if err != nil {
		return fmt.Errorf("record document update %q: %w", event.DocumentID, err)
	}

	if c.metrics != nil {
		c.metrics.IncConsumed()
		c.metrics.ObserveIngestLag(event.ReceivedAt.Sub(event.Content.CapturedAt))
	}

	c.logger.Debug("document event ingested",
		zap.String("document_id", event.DocumentID),
		zap.Int64("version_number", version.VersionNumber),
	)

	return nil
}

var _ MessageHandler = (*DocumentConsumer)(nil)
