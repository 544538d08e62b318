// Package events implements the Ledger's choreography: it consumes
// transfer.initiated, wallet.debited, and wallet.credit-failed, and drives
// the debit/credit/refund steps of the ledger engine (spec.md §4.4).
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"saga-engine/internal/ledger/domain"
	"saga-engine/internal/ledger/store/postgres"
	platformevents "saga-engine/internal/platform/events"
	"saga-engine/internal/platform/idgen"
	"saga-engine/internal/platform/logging"
	"saga-engine/internal/platform/retrybackoff"
)

// Store is the narrow persistence surface the handler needs.
type Store interface {
	Apply(ctx context.Context, walletID, transactionID uuid.UUID, amount int64, entryType domain.EntryType, outboxEvt *postgres.OutboxEvent) (domain.ApplyResult, error)
	AppendOutbox(ctx context.Context, aggregateID string, eventType platformevents.EventType, payload []byte) error
	InsertDeadLetter(ctx context.Context, originalTopic string, originalPayload []byte, errMsg, errStack string, attemptCount int) (domain.DeadLetter, error)
}

// Handler dispatches broker messages by topic to the matching ledger
// operation, following the teacher's topic-dispatched consumer idiom.
type Handler struct {
	store  Store
	policy retrybackoff.Policy
}

func NewHandler(store Store, policy retrybackoff.Policy) *Handler {
	return &Handler{store: store, policy: policy}
}

// Handle implements broker.MessageHandler.
func (h *Handler) Handle(ctx context.Context, topic string, key, value []byte) error {
	switch topic {
	case platformevents.TopicTransferInitiated:
		return h.onTransferInitiated(ctx, value)
	case platformevents.TopicWalletDebited:
		return h.onWalletDebited(ctx, value)
	case platformevents.TopicWalletCreditFailed:
		return h.onWalletCreditFailed(ctx, topic, value)
	default:
		logging.Warn("ledger received unexpected topic", map[string]interface{}{"topic": topic})
		return nil
	}
}

// onTransferInitiated performs the debit step (spec.md §4.4 "Ledger: on
// TransferInitiated"). WalletDebited is appended in the same local
// transaction as the debit itself; WalletDebitFailed, when the debit is
// rejected, is a standalone write instead of the mutation.
func (h *Handler) onTransferInitiated(ctx context.Context, value []byte) error {
	var p platformevents.TransferInitiatedPayload
	if err := json.Unmarshal(value, &p); err != nil {
		return fmt.Errorf("unmarshal TransferInitiated: %w", err)
	}

	debitedPayload, err := json.Marshal(platformevents.WalletDebitedPayload{
		TransferID: p.TransferID, WalletID: p.SenderWalletID, ReceiverWalletID: p.ReceiverWalletID,
		Amount: p.Amount, Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal WalletDebited: %w", err)
	}

	_, err = h.store.Apply(ctx, p.SenderWalletID, p.TransferID, p.Amount, domain.EntryDebit, &postgres.OutboxEvent{
		AggregateID: p.TransferID.String(),
		EventType:   platformevents.WalletDebited,
		Payload:     debitedPayload,
	})
	if err == nil {
		return nil
	}

	reason, ok := failureReason(err)
	if !ok {
		return err // transient store error: let the broker redeliver.
	}

	failedPayload, err := json.Marshal(platformevents.WalletDebitFailedPayload{
		TransferID: p.TransferID, WalletID: p.SenderWalletID, Amount: p.Amount, Reason: reason, Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal WalletDebitFailed: %w", err)
	}
	return h.store.AppendOutbox(ctx, p.TransferID.String(), platformevents.WalletDebitFailed, failedPayload)
}

// onWalletDebited performs the credit step (spec.md §4.4 "Ledger: on
// WalletDebited").
func (h *Handler) onWalletDebited(ctx context.Context, value []byte) error {
	var p platformevents.WalletDebitedPayload
	if err := json.Unmarshal(value, &p); err != nil {
		return fmt.Errorf("unmarshal WalletDebited: %w", err)
	}

	creditedPayload, err := json.Marshal(platformevents.WalletCreditedPayload{
		TransferID: p.TransferID, WalletID: p.ReceiverWalletID, Amount: p.Amount, Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal WalletCredited: %w", err)
	}

	_, err = h.store.Apply(ctx, p.ReceiverWalletID, p.TransferID, p.Amount, domain.EntryCredit, &postgres.OutboxEvent{
		AggregateID: p.TransferID.String(),
		EventType:   platformevents.WalletCredited,
		Payload:     creditedPayload,
	})
	if err == nil {
		return nil
	}

	reason, ok := failureReason(err)
	if !ok {
		return err
	}

	// SenderWalletID here is the wallet the debit already hit (p.WalletID
	// on the WalletDebited event), the one compensation must refund.
	failedPayload, err := json.Marshal(platformevents.WalletCreditFailedPayload{
		TransferID: p.TransferID, SenderWalletID: p.WalletID, Amount: p.Amount, Reason: reason, Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal WalletCreditFailed: %w", err)
	}
	return h.store.AppendOutbox(ctx, p.TransferID.String(), platformevents.WalletCreditFailed, failedPayload)
}

// onWalletCreditFailed performs the compensating refund, retrying
// transient failures before quarantining to the DLQ (spec.md §4.4 "Ledger:
// on WalletCreditFailed", §4.6). The broker message is still acknowledged
// (nil return) on exhaustion to avoid head-of-line blocking.
func (h *Handler) onWalletCreditFailed(ctx context.Context, topic string, value []byte) error {
	attempts, runErr := h.attemptRefund(ctx, value)
	if runErr == nil {
		return nil
	}

	logging.Error("refund exhausted retries, quarantining", runErr, map[string]interface{}{"attempts": attempts})
	if _, err := h.store.InsertDeadLetter(ctx, topic, value, runErr.Error(), string(debug.Stack()), attempts); err != nil {
		return fmt.Errorf("insert dead letter after refund exhaustion: %w", err)
	}
	return nil
}

// HandleReplay re-dispatches a quarantined message for the Ledger's admin
// replay surface (spec.md §4.6 "Admin interface"). Unlike Handle, it
// returns the refund error directly instead of writing a second dead
// letter, so the caller can decide the replayed entry's outcome.
func (h *Handler) HandleReplay(ctx context.Context, topic string, key, value []byte) error {
	if topic != platformevents.TopicWalletCreditFailed {
		return h.Handle(ctx, topic, key, value)
	}
	_, err := h.attemptRefund(ctx, value)
	return err
}

// attemptRefund runs the bounded-retry refund attempt and reports how many
// attempts it took. A nil error means the refund (or its idempotent
// duplicate) succeeded.
func (h *Handler) attemptRefund(ctx context.Context, value []byte) (attempts int, err error) {
	var p platformevents.WalletCreditFailedPayload
	if unmarshalErr := json.Unmarshal(value, &p); unmarshalErr != nil {
		return 0, fmt.Errorf("unmarshal WalletCreditFailed: %w", unmarshalErr)
	}

	refundTxnID := idgen.RefundTransactionID(p.TransferID)

	runErr := retrybackoff.Run(ctx, h.policy, func() error {
		attempts++

		refundedPayload, marshalErr := json.Marshal(platformevents.WalletRefundedPayload{
			TransferID: p.TransferID, WalletID: p.SenderWalletID, Amount: p.Amount, Timestamp: time.Now().UTC(),
		})
		if marshalErr != nil {
			return retrybackoff.Permanent(fmt.Errorf("marshal WalletRefunded: %w", marshalErr))
		}

		_, applyErr := h.store.Apply(ctx, p.SenderWalletID, refundTxnID, p.Amount, domain.EntryRefund, &postgres.OutboxEvent{
			AggregateID: p.TransferID.String(),
			EventType:   platformevents.WalletRefunded,
			Payload:     refundedPayload,
		})
		if applyErr == nil {
			return nil
		}
		if _, ok := failureReason(applyErr); ok {
			// Business errors are not retryable (spec.md §4.6).
			return retrybackoff.Permanent(applyErr)
		}
		return applyErr
	})

	if runErr == nil {
		logging.Info("refund applied", map[string]interface{}{
			"transfer_id": p.TransferID.String(), "wallet_id": p.SenderWalletID.String(), "attempts": attempts,
		})
	}
	return attempts, runErr
}

// failureReason classifies err as a business failure the outbox should
// surface as a *Failed event, returning the reason string and true;
// returns false for anything else (transient errors the caller should let
// the broker redeliver, or that the retry wrapper should retry).
func failureReason(err error) (string, bool) {
	var insufficient domain.ErrInsufficientBalance
	if errors.As(err, &insufficient) {
		return insufficient.Error(), true
	}
	if errors.Is(err, postgres.ErrWalletNotFound) {
		return "Wallet not found", true
	}
	return "", false
}
