package outbox

import (
	"context"
	"sync"
	"time"

	"saga-engine/internal/platform/events"
	"saga-engine/internal/platform/logging"
)

// Store is implemented by each service's postgres package. PublishTick
// must, within a single database transaction:
//  1. select up to batchSize unpublished records ordered by created_at
//     ascending using skip-locked row selection so multiple publisher
//     instances cooperate without blocking each other (spec.md §4.3, §5,
//     §9);
//  2. call publish for each selected record;
//  3. bulk-update publishedAt for every record publish returned nil for;
//  4. commit.
//
// Records publish returns an error for are left untouched (publishedAt
// stays NULL) and are retried on the next tick (spec.md §7: "Unbounded
// tail-retry is acceptable because emission is the only non-terminal side
// effect").
type Store interface {
	PublishTick(ctx context.Context, batchSize int, publish func(Record) error) (published int, err error)
}

// EventPublisher is the narrow producer surface the outbox publisher
// needs; satisfied by broker.Producer.
type EventPublisher interface {
	PublishEvent(topic, key string, payload interface{}) error
}

// Publisher is the single periodic task per service that drains the
// outbox table to the broker (spec.md §4.3).
type Publisher struct {
	store    Store
	producer EventPublisher
	interval time.Duration
	batch    int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPublisher(store Store, producer EventPublisher, interval time.Duration, batchSize int) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Publisher{
		store:    store,
		producer: producer,
		interval: interval,
		batch:    batchSize,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *Publisher) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.tick()
			case <-p.ctx.Done():
				return
			}
		}
	}()
}

func (p *Publisher) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Publisher) tick() {
	published, err := p.store.PublishTick(p.ctx, p.batch, func(rec Record) error {
		topic, ok := events.TopicFor(rec.EventType)
		if !ok {
			logging.Error("unknown outbox event type, leaving unpublished", nil, map[string]interface{}{
				"event_type": string(rec.EventType), "id": rec.ID.String(),
			})
			return errUnknownEventType
		}
		return p.producer.PublishEvent(topic, rec.AggregateID, rec.rawPayload())
	})
	if err != nil {
		logging.Error("outbox publish tick failed", err, nil)
		return
	}
	if published > 0 {
		logging.Debug("outbox tick published records", map[string]interface{}{"count": published})
	}
}

// rawPayload lets Publisher re-emit the already-serialized JSON payload
// verbatim instead of re-marshaling a typed struct, since the outbox row
// stores the event body opaquely (spec.md §3).
func (r Record) rawPayload() interface{} {
	return rawJSON(r.Payload)
}

type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

var errUnknownEventType = unknownEventTypeError{}

type unknownEventTypeError struct{}

func (unknownEventTypeError) Error() string { return "unknown outbox event type" }
