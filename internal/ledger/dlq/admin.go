// Package dlq implements the Ledger's dead-letter admin surface: listing,
// single-entry lookup, and replay (spec.md §4.6 "Admin interface").
package dlq

import (
	"context"

	"github.com/google/uuid"

	"saga-engine/internal/ledger/domain"
)

// Store is the narrow persistence surface the admin surface needs.
type Store interface {
	ListDeadLetters(ctx context.Context, status domain.DeadLetterStatus) ([]domain.DeadLetter, error)
	GetDeadLetter(ctx context.Context, id uuid.UUID) (domain.DeadLetter, error)
	MarkDeadLetterProcessed(ctx context.Context, id uuid.UUID) error
	MarkDeadLetterFailed(ctx context.Context, id uuid.UUID) error
}

// MessageHandler replays a quarantined message and reports its outcome;
// satisfied by events.Handler.HandleReplay, which runs the refund without
// writing a second dead letter.
type MessageHandler func(ctx context.Context, topic string, key, value []byte) error

type Admin struct {
	store  Store
	replay MessageHandler
}

func NewAdmin(store Store, replay MessageHandler) *Admin {
	return &Admin{store: store, replay: replay}
}

func (a *Admin) List(ctx context.Context, status domain.DeadLetterStatus) ([]domain.DeadLetter, error) {
	return a.store.ListDeadLetters(ctx, status)
}

func (a *Admin) Get(ctx context.Context, id uuid.UUID) (domain.DeadLetter, error) {
	return a.store.GetDeadLetter(ctx, id)
}

// Replay reconstructs the quarantined payload and re-invokes the matching
// handler. Replaying an already-PROCESSED entry is a no-op success
// (spec.md §4.6 "Idempotent on already-PROCESSED entries"); the underlying
// handler is safe to run any number of times because ledger effects are
// idempotent via (walletId, transactionId).
func (a *Admin) Replay(ctx context.Context, id uuid.UUID) (success bool, message string, err error) {
	entry, err := a.store.GetDeadLetter(ctx, id)
	if err != nil {
		return false, "", err
	}

	if entry.Status == domain.DeadLetterProcessed {
		return true, "already processed", nil
	}

	if handleErr := a.replay(ctx, entry.OriginalTopic, nil, entry.OriginalPayload); handleErr != nil {
		if markErr := a.store.MarkDeadLetterFailed(ctx, id); markErr != nil {
			return false, "", markErr
		}
		return false, handleErr.Error(), nil
	}

	if err := a.store.MarkDeadLetterProcessed(ctx, id); err != nil {
		return false, "", err
	}
	return true, "replayed successfully", nil
}
