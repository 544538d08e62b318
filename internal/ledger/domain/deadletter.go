package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeadLetterStatus is the closed set of DLQ entry states (spec.md §3).
type DeadLetterStatus string

const (
	DeadLetterPending   DeadLetterStatus = "PENDING"
	DeadLetterProcessed DeadLetterStatus = "PROCESSED"
	DeadLetterFailed    DeadLetterStatus = "FAILED"
)

// DeadLetter is a quarantined message whose in-process retries were
// exhausted (spec.md §3, §4.6).
type DeadLetter struct {
	ID              uuid.UUID
	OriginalTopic   string
	OriginalPayload []byte
	ErrorMessage    string
	ErrorStack      string
	AttemptCount    int
	Status          DeadLetterStatus
	CreatedAt       time.Time
	ProcessedAt     *time.Time
}
