// Package outbox implements the transactional outbox record shape and the
// periodic polling publisher shared by both services (spec.md §4.3).
package outbox

import (
	"time"

	"github.com/google/uuid"

	"saga-engine/internal/platform/events"
	"saga-engine/internal/platform/idgen"
)

// Record is a durable antecedent for a broker event, written atomically
// with the domain mutation that produced it (spec.md §3 OutboxRecord).
type Record struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string // broker message key
	EventType     events.EventType
	Payload       []byte // opaque JSON document
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewRecord builds an unpublished outbox row ready for insertion in the
// same local transaction as the domain write it accompanies.
func NewRecord(aggregateType, aggregateID string, eventType events.EventType, payload []byte) Record {
	return Record{
		ID:            idgen.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
}
