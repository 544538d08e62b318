package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"saga-engine/internal/coordinator/domain"
	"saga-engine/internal/platform/events"
	"saga-engine/internal/platform/outbox"
)

// FindStuckTransfers returns Transfers with timeoutAt < now and
// status in {PENDING, DEBITED}, ordered by timeoutAt ascending, up to
// limit (spec.md §4.5).
func (s *Store) FindStuckTransfers(ctx context.Context, now time.Time, limit int) ([]domain.Transfer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT transfer_id, sender_wallet_id, receiver_wallet_id, amount, status, failure_reason, timeout_at, created_at, updated_at
		FROM transfers
		WHERE timeout_at < $1 AND status IN ('PENDING', 'DEBITED')
		ORDER BY timeout_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select stuck transfers: %w", err)
	}
	defer rows.Close()

	var out []domain.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecoverTimeout applies the timeout transition for a single stuck
// Transfer (spec.md §4.5), in one local transaction guarded by the same
// conditional-UPDATE pattern ApplyEvent uses, so a concurrent handler
// racing the scanner always leaves exactly one winner.
func (s *Store) RecoverTimeout(ctx context.Context, id uuid.UUID) (applied bool, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanTransferTx(ctx, tx, id)
	if err != nil {
		return false, err
	}

	if current.Status != domain.StatusPending && current.Status != domain.StatusDebited {
		return false, nil
	}

	wasDebited := current.Status == domain.StatusDebited
	var reason string
	if wasDebited {
		reason = "saga timeout: credit not processed"
	} else {
		reason = "saga timeout: debit not processed"
	}

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		UPDATE transfers SET status = $1, failure_reason = $2, updated_at = $3
		WHERE transfer_id = $4 AND status = $5
	`, string(domain.StatusFailed), reason, now, id, string(current.Status))
	if err != nil {
		return false, fmt.Errorf("update transfer status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	failedPayload, err := json.Marshal(events.TransferFailedPayload{TransferID: id, FailureReason: reason, Timestamp: now})
	if err != nil {
		return false, fmt.Errorf("marshal TransferFailed: %w", err)
	}
	if err := insertOutbox(ctx, tx, outbox.NewRecord("Transfer", id.String(), events.TransferFailed, failedPayload)); err != nil {
		return false, err
	}

	if wasDebited {
		// Drive the normal refund path by emitting the same synthetic
		// event a real WalletCreditFailed would produce. Correctness
		// relies entirely on the Ledger's deterministic refund key to
		// deduplicate against any credit-failed arrival that races this
		// tick (spec.md §4.5, §9 Open Question).
		creditFailedPayload, err := json.Marshal(events.WalletCreditFailedPayload{
			TransferID:     id,
			SenderWalletID: current.SenderWalletID,
			Amount:         current.Amount,
			Reason:         "saga timeout",
			Timestamp:      now,
		})
		if err != nil {
			return false, fmt.Errorf("marshal WalletCreditFailed: %w", err)
		}
		if err := insertOutbox(ctx, tx, outbox.NewRecord("Transfer", id.String(), events.WalletCreditFailed, creditFailedPayload)); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
