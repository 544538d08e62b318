package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"saga-engine/internal/platform/config"
	"saga-engine/internal/platform/logging"
)

// MessageHandler processes one broker message. Returning an error leaves
// the message unmarked, so the broker redelivers it (spec.md §4.4, §5,
// §7: "redelivery from broker will re-execute; ledger idempotency
// prevents double effect").
type MessageHandler func(ctx context.Context, topic string, key, value []byte) error

// ConsumerGroup wraps a Sarama consumer group, committing offsets only
// after a message is handled successfully, grounded on the teacher's
// DepositConsumer / depositConsumerHandler.
type ConsumerGroup struct {
	group  sarama.ConsumerGroup
	topics []string
	handle MessageHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumerGroup(cfg config.BrokerConfig, groupID string, topics []string, handle MessageHandler) (*ConsumerGroup, error) {
	sc := toSaramaConfig(cfg)
	group, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, sc)
	if err != nil {
		return nil, fmt.Errorf("create consumer group %s: %w", groupID, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ConsumerGroup{
		group:  group,
		topics: topics,
		handle: handle,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start launches the consume loop and the error-logging goroutine.
// Consume must be called in a loop because a server-side rebalance
// recreates the session (per Sarama's documented usage, preserved from
// the teacher's DepositConsumer.Start).
func (c *ConsumerGroup) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		handler := &groupHandler{handle: c.handle}
		for {
			if err := c.group.Consume(c.ctx, c.topics, handler); err != nil {
				logging.Error("consumer group session error", err, map[string]interface{}{"topics": c.topics})
			}
			if c.ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case err, ok := <-c.group.Errors():
				if !ok {
					return
				}
				logging.Error("consumer group error", err, nil)
			case <-c.ctx.Done():
				return
			}
		}
	}()
}

func (c *ConsumerGroup) Stop() error {
	c.cancel()
	c.wg.Wait()
	return c.group.Close()
}

type groupHandler struct {
	handle MessageHandler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if err := h.handle(session.Context(), message.Topic, message.Key, message.Value); err != nil {
				logging.Error("message handler failed, leaving uncommitted for redelivery", err, map[string]interface{}{
					"topic": message.Topic, "offset": message.Offset,
				})
				// Ending this claim ends the session before any later
				// offset is committed; Start's loop rejoins the group and
				// resumes from the last committed offset, so this message
				// is delivered again.
				return nil
			}
			session.MarkMessage(message, "")
			session.Commit()
		case <-session.Context().Done():
			return nil
		}
	}
}
