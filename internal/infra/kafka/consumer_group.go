package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/mugiisha/sop-sub001/internal/infra/config"
)

// MessageHandler processes a single consumed Kafka message. ErrInvalidPayload
// marks a message that can never be applied; any other error is treated as
// transient and the message is left for redelivery.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// ConsumerGroup runs a Sarama consumer group session loop until the context
// is cancelled. Producers key messages by document id, so every message for a
// document lands on the same partition and each claim replays them in order.
type ConsumerGroup struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler MessageHandler
	logger  *zap.Logger
}

// NewConsumerGroup builds a consumer group subscribed to the given topics.
func NewConsumerGroup(cfg *config.KafkaSettings, topics []string, handler MessageHandler, logger *zap.Logger) (*ConsumerGroup, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create consumer group %q: %w", cfg.GroupID, err)
	}

	return &ConsumerGroup{
		group:   group,
		topics:  topics,
		handler: handler,
		logger:  logger,
	}, nil
}

// Run consumes until ctx is cancelled, rejoining the group after rebalances.
func (c *ConsumerGroup) Run(ctx context.Context) error {
	go c.drainErrors(ctx)

	handler := &groupHandler{handler: c.handler, logger: c.logger}
	for {
		if err := c.group.Consume(ctx, c.topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("consumer group session failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the group and releases the underlying client.
func (c *ConsumerGroup) Close() error {
	return c.group.Close()
}

func (c *ConsumerGroup) drainErrors(ctx context.Context) {
	for {
		select {
		case err, ok := <-c.group.Errors():
			if !ok {
				return
			}
			c.logger.Error("consumer group error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}

type groupHandler struct {
	handler MessageHandler
	logger  *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim applies messages from one partition sequentially, which keeps
// per-document ordering intact. Malformed payloads are logged, marked, and
// dropped so a poison message cannot wedge the partition; any other failure
// aborts the claim without marking, so the offset is redelivered.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handler.HandleMessage(session.Context(), msg); err != nil {
			if !errors.Is(err, ErrInvalidPayload) {
				h.logger.Error("document event failed, leaving offset for redelivery",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.ByteString("key", msg.Key),
					zap.Error(err),
				)
				return err
			}
			h.logger.Error("document event dropped",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.ByteString("key", msg.Key),
				zap.Error(err),
			)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}
