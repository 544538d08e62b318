// Package domain implements the saga state machine owned by the
// Coordinator (spec.md §4.1). It is deliberately side-effect-free: the
// store layer is responsible for turning a transition decision into a
// conditional UPDATE and an outbox insert within one local transaction.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of saga states (spec.md §3).
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDebited   Status = "DEBITED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// IsTerminal reports whether status is absorbing (spec.md §3 invariant).
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transfer is the saga record (spec.md §3).
type Transfer struct {
	TransferID       uuid.UUID
	SenderWalletID   uuid.UUID
	ReceiverWalletID uuid.UUID
	Amount           int64
	Status           Status
	FailureReason    *string
	TimeoutAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Event is the closed set of inputs the machine reacts to (spec.md §4.1).
type Event string

const (
	EventWalletDebited     Event = "WalletDebited"
	EventWalletDebitFailed Event = "WalletDebitFailed"
	EventWalletCredited    Event = "WalletCredited"
	EventWalletCreditFailed Event = "WalletCreditFailed"
	EventTimeoutTick       Event = "TimeoutTick"
)

var validTransitions = map[Status]map[Event]Status{
	StatusPending: {
		EventWalletDebited:     StatusDebited,
		EventWalletDebitFailed: StatusFailed,
		EventTimeoutTick:       StatusFailed,
	},
	StatusDebited: {
		EventWalletCredited:     StatusCompleted,
		EventWalletCreditFailed: StatusFailed,
		EventTimeoutTick:        StatusFailed,
	},
}

// NextStatus returns the status current transitions to on event, and
// whether the transition is valid. Every other combination — including any
// event on a terminal status — is a no-op per spec.md §4.1 ("all other
// transitions are rejected, silently, as no-ops").
func NextStatus(current Status, event Event) (Status, bool) {
	byEvent, ok := validTransitions[current]
	if !ok {
		return current, false
	}
	next, ok := byEvent[event]
	if !ok {
		return current, false
	}
	return next, true
}

// EmitsTerminalEvent reports whether a transition into status to
// produces a TransferFailed/TransferCompleted outbox event by itself. The
// PENDING->DEBITED transition has no side effect (spec.md §4.1 table).
func EmitsTerminalEvent(to Status) bool {
	return to == StatusCompleted || to == StatusFailed
}
