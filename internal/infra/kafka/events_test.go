package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
	"github.com/mugiisha/sop-sub001/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func TestPublishDocumentReverted(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg:      config.KafkaSettings{},
		errChan:  make(chan error, 1),
		done:     make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "sop-version-core",
		Env:  "test",
	}, zaptest.NewLogger(t))

	revertedAt := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	capturedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	event := domain.DocumentRevertedEvent{
		EventID:       "event-123",
		DocumentID:    "doc-42",
		VersionNumber: 3,
		Content: domain.DocumentContent{
			Title:        "Evacuation Procedure",
			Description:  "Building evacuation steps",
			Body:         "Leave via the nearest exit.",
			Category:     "safety",
			DepartmentID: "dept-7",
			Visibility:   "internal",
			DocumentURLs: []string{"https://assets.example.com/map.pdf"},
			CapturedAt:   capturedAt,
		},
		RevertedAt: revertedAt,
	}

	if err := publisher.PublishDocumentReverted(context.Background(), event); err != nil {
		t.Fatalf("PublishDocumentReverted returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "sop.document.reverted" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		key, err := msg.Key.Encode()
		if err != nil {
			t.Fatalf("Key.Encode returned error: %v", err)
		}
		if string(key) != event.DocumentID {
			t.Fatalf("message not keyed by document id: %s", key)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != EventTypeDocumentReverted {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}

		if got := envelope["document_id"]; got != event.DocumentID {
			t.Fatalf("unexpected document_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != revertedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["id"]; got != event.DocumentID {
			t.Fatalf("unexpected payload id: %v", got)
		}

		versionValue, ok := payload["version_number"].(float64)
		if !ok {
			t.Fatalf("version_number not numeric: %T", payload["version_number"])
		}
		if int64(versionValue) != event.VersionNumber {
			t.Fatalf("unexpected version_number: %v", versionValue)
		}

		if got := payload["title"]; got != event.Content.Title {
			t.Fatalf("unexpected title: %v", got)
		}

		if got := payload["body"]; got != event.Content.Body {
			t.Fatalf("unexpected body: %v", got)
		}

		capturedAtValue, ok := payload["capturedAt"].(string)
		if !ok {
			t.Fatalf("capturedAt not a string: %T", payload["capturedAt"])
		}
		if capturedAtValue != capturedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected capturedAt: %s", capturedAtValue)
		}

		urls, ok := payload["documentUrls"].([]any)
		if !ok || len(urls) != 1 {
			t.Fatalf("unexpected documentUrls: %v", payload["documentUrls"])
		}

		envelopeMetadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}

		if envelopeMetadata["service"] != "sop-version-core" {
			t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
		}

		if envelopeMetadata["environment"] != "test" {
			t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}
