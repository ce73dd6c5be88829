package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"
)

type stubGroupSession struct {
	ctx    context.Context
	marked []int64
}

func (s *stubGroupSession) Claims() map[string][]int32 { return nil }

func (s *stubGroupSession) MemberID() string { return "member-1" }

func (s *stubGroupSession) GenerationID() int32 { return 1 }

func (s *stubGroupSession) MarkOffset(string, int32, int64, string) {}

func (s *stubGroupSession) Commit() {}

func (s *stubGroupSession) ResetOffset(string, int32, int64, string) {}

func (s *stubGroupSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

func (s *stubGroupSession) Context() context.Context { return s.ctx }

type stubGroupClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *stubGroupClaim) Topic() string { return "sop.document.upserted" }

func (c *stubGroupClaim) Partition() int32 { return 0 }

func (c *stubGroupClaim) InitialOffset() int64 { return 0 }

func (c *stubGroupClaim) HighWaterMarkOffset() int64 { return 0 }

func (c *stubGroupClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newStubClaim(msgs ...*sarama.ConsumerMessage) *stubGroupClaim {
	claim := &stubGroupClaim{messages: make(chan *sarama.ConsumerMessage, len(msgs))}
	for _, msg := range msgs {
		claim.messages <- msg
	}
	close(claim.messages)
	return claim
}

type funcHandler func(ctx context.Context, msg *sarama.ConsumerMessage) error

func (f funcHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	return f(ctx, msg)
}

func TestConsumeClaim_MarksAppliedAndInvalidMessages(t *testing.T) {
	session := &stubGroupSession{ctx: context.Background()}
	handler := &groupHandler{
		handler: funcHandler(func(_ context.Context, msg *sarama.ConsumerMessage) error {
			if msg.Offset == 1 {
				return fmt.Errorf("decode document payload: %w", ErrInvalidPayload)
			}
			return nil
		}),
		logger: zaptest.NewLogger(t),
	}

	claim := newStubClaim(
		&sarama.ConsumerMessage{Topic: "sop.document.upserted", Offset: 0},
		&sarama.ConsumerMessage{Topic: "sop.document.upserted", Offset: 1},
		&sarama.ConsumerMessage{Topic: "sop.document.upserted", Offset: 2},
	)

	if err := handler.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim returned error: %v", err)
	}
	if len(session.marked) != 3 {
		t.Fatalf("expected all 3 offsets marked, got %v", session.marked)
	}
}

func TestConsumeClaim_TransientFailureLeavesOffsetUnmarked(t *testing.T) {
	session := &stubGroupSession{ctx: context.Background()}
	transient := errors.New("ledger unavailable")
	handler := &groupHandler{
		handler: funcHandler(func(_ context.Context, msg *sarama.ConsumerMessage) error {
			if msg.Offset == 1 {
				return transient
			}
			return nil
		}),
		logger: zaptest.NewLogger(t),
	}

	claim := newStubClaim(
		&sarama.ConsumerMessage{Topic: "sop.document.upserted", Offset: 0},
		&sarama.ConsumerMessage{Topic: "sop.document.upserted", Offset: 1},
		&sarama.ConsumerMessage{Topic: "sop.document.upserted", Offset: 2},
	)

	if err := handler.ConsumeClaim(session, claim); !errors.Is(err, transient) {
		t.Fatalf("expected the handler error back, got %v", err)
	}
	if len(session.marked) != 1 || session.marked[0] != 0 {
		t.Fatalf("expected only offset 0 marked, got %v", session.marked)
	}
}
