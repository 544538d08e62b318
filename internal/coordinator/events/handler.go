// Package events implements the Coordinator's choreography: it consumes
// wallet.* topics and drives the saga state machine (spec.md §4.4).
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"saga-engine/internal/coordinator/domain"
	platformevents "saga-engine/internal/platform/events"
	"saga-engine/internal/platform/logging"
)

// Store is the narrow persistence surface the handler needs.
type Store interface {
	ApplyEvent(ctx context.Context, transferID uuid.UUID, event domain.Event, reason string) (applied bool, t domain.Transfer, err error)
}

// Handler dispatches broker messages by topic to the matching state
// transition, following the teacher's topic-dispatched consumer idiom.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Handle implements broker.MessageHandler.
func (h *Handler) Handle(ctx context.Context, topic string, key, value []byte) error {
	switch topic {
	case platformevents.TopicWalletDebited:
		return h.onWalletDebited(ctx, value)
	case platformevents.TopicWalletDebitFailed:
		return h.onWalletDebitFailed(ctx, value)
	case platformevents.TopicWalletCredited:
		return h.onWalletCredited(ctx, value)
	case platformevents.TopicWalletCreditFailed:
		return h.onWalletCreditFailed(ctx, value)
	default:
		logging.Warn("coordinator received unexpected topic", map[string]interface{}{"topic": topic})
		return nil
	}
}

func (h *Handler) onWalletDebited(ctx context.Context, value []byte) error {
	var p platformevents.WalletDebitedPayload
	if err := json.Unmarshal(value, &p); err != nil {
		return fmt.Errorf("unmarshal WalletDebited: %w", err)
	}
	_, _, err := h.store.ApplyEvent(ctx, p.TransferID, domain.EventWalletDebited, "")
	return err
}

func (h *Handler) onWalletDebitFailed(ctx context.Context, value []byte) error {
	var p platformevents.WalletDebitFailedPayload
	if err := json.Unmarshal(value, &p); err != nil {
		return fmt.Errorf("unmarshal WalletDebitFailed: %w", err)
	}
	_, _, err := h.store.ApplyEvent(ctx, p.TransferID, domain.EventWalletDebitFailed, p.Reason)
	return err
}

func (h *Handler) onWalletCredited(ctx context.Context, value []byte) error {
	var p platformevents.WalletCreditedPayload
	if err := json.Unmarshal(value, &p); err != nil {
		return fmt.Errorf("unmarshal WalletCredited: %w", err)
	}
	_, _, err := h.store.ApplyEvent(ctx, p.TransferID, domain.EventWalletCredited, "")
	return err
}

func (h *Handler) onWalletCreditFailed(ctx context.Context, value []byte) error {
	var p platformevents.WalletCreditFailedPayload
	if err := json.Unmarshal(value, &p); err != nil {
		return fmt.Errorf("unmarshal WalletCreditFailed: %w", err)
	}
	_, _, err := h.store.ApplyEvent(ctx, p.TransferID, domain.EventWalletCreditFailed, p.Reason)
	return err
}
