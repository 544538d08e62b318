package broker

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"saga-engine/internal/platform/config"
	"saga-engine/internal/platform/logging"
)

// Producer wraps a synchronous Sarama producer for the outbox publisher.
// The publisher calls PublishEvent once per outbox row and only marks the
// row published after SendMessage returns without error, so delivery is
// confirmed before the durable NULL->timestamp transition (spec.md §4.3).
type Producer struct {
	producer sarama.SyncProducer
	mu       sync.RWMutex
	closed   bool
}

func NewProducer(cfg config.BrokerConfig) (*Producer, error) {
	sc := toSaramaConfig(cfg)
	p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logging.Info("broker producer initialized", map[string]interface{}{"brokers": cfg.Brokers, "client_id": cfg.ClientID})
	return &Producer{producer: p}, nil
}

// PublishEvent serializes payload to JSON and sends it to topic, keyed by
// key (the aggregateId, equal to transferId for saga events, spec.md §3).
func (p *Producer) PublishEvent(topic, key string, payload interface{}) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("producer is closed")
	}
	p.mu.RUnlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send message to broker: %w", err)
	}

	logging.Debug("event published", map[string]interface{}{
		"topic": topic, "key": key, "partition": partition, "offset": offset,
	})
	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.producer.Close()
}
