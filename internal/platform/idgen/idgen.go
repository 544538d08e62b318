// Package idgen centralizes identifier generation so every primary key in
// the system is a time-ordered UUID (monotonic insert order helps outbox
// index locality, per spec.md §9), and so the refund-key derivation rule
// lives in exactly one place.
package idgen

import "github.com/google/uuid"

// refundNamespace is a fixed namespace UUID used to derive deterministic
// refund transaction ids. It must never change: changing it would silently
// break idempotency for any refund already in flight when the rollout
// happens.
var refundNamespace = uuid.MustParse("6f1b1a6e-6b3a-4c1a-9c2d-1f6a8a2e5b10")

// New returns a fresh time-ordered identifier for a new row.
func New() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the global entropy source errors, which the
		// standard library documents as effectively impossible; fall back
		// to NewRandom rather than panic on a primary-key allocator.
		return uuid.New()
	}
	return id
}

// RefundTransactionID derives the deterministic idempotency key used for
// the compensating REFUND ledger entry of transferID. It MUST differ from
// transferID itself and MUST be stable across retries, redeliveries, DLQ
// replays, and timeout-driven compensation (spec.md §4.2, §9).
func RefundTransactionID(transferID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(refundNamespace, []byte("refund:"+transferID.String()))
}
