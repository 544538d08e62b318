// Package postgres implements the Coordinator's store: the Transfer saga
// record and its outbox, grounded on the teacher's
// internal/infrastructure/database/postgres.PostgresRepository (pgxpool,
// explicit transactions, conditional-UPDATE row-count checks).
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saga-engine/internal/coordinator/domain"
	"saga-engine/internal/platform/config"
	"saga-engine/internal/platform/events"
	"saga-engine/internal/platform/idgen"
	"saga-engine/internal/platform/logging"
	"saga-engine/internal/platform/outbox"
)

// ErrNotFound indicates a Transfer row doesn't exist.
var ErrNotFound = errors.New("transfer not found")

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logging.Info("coordinator store connected", map[string]interface{}{"database": cfg.Database})
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// CreateTransfer persists a new PENDING Transfer and its TransferInitiated
// outbox record in one local transaction (spec.md §4.1 "Initiation
// contract").
func (s *Store) CreateTransfer(ctx context.Context, senderID, receiverID uuid.UUID, amount int64, sagaTimeout time.Duration) (domain.Transfer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	t := domain.Transfer{
		TransferID:       idgen.New(),
		SenderWalletID:   senderID,
		ReceiverWalletID: receiverID,
		Amount:           amount,
		Status:           domain.StatusPending,
		TimeoutAt:        now.Add(sagaTimeout),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transfers (transfer_id, sender_wallet_id, receiver_wallet_id, amount, status, timeout_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, t.TransferID, t.SenderWalletID, t.ReceiverWalletID, t.Amount, string(t.Status), t.TimeoutAt, t.CreatedAt)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("insert transfer: %w", err)
	}

	payload, err := json.Marshal(events.TransferInitiatedPayload{
		TransferID:       t.TransferID,
		SenderWalletID:   t.SenderWalletID,
		ReceiverWalletID: t.ReceiverWalletID,
		Amount:           t.Amount,
		Timestamp:        now,
	})
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("marshal TransferInitiated: %w", err)
	}

	if err := insertOutbox(ctx, tx, outbox.NewRecord("Transfer", t.TransferID.String(), events.TransferInitiated, payload)); err != nil {
		return domain.Transfer{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Transfer{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

// GetTransfer returns the current Transfer by id, or ErrNotFound.
func (s *Store) GetTransfer(ctx context.Context, transferID uuid.UUID) (domain.Transfer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT transfer_id, sender_wallet_id, receiver_wallet_id, amount, status, failure_reason, timeout_at, created_at, updated_at
		FROM transfers WHERE transfer_id = $1
	`, transferID)
	return scanTransfer(row)
}

func scanTransfer(row pgx.Row) (domain.Transfer, error) {
	var t domain.Transfer
	var status string
	var reason *string
	if err := row.Scan(&t.TransferID, &t.SenderWalletID, &t.ReceiverWalletID, &t.Amount, &status, &reason, &t.TimeoutAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transfer{}, ErrNotFound
		}
		return domain.Transfer{}, fmt.Errorf("scan transfer: %w", err)
	}
	t.Status = domain.Status(status)
	t.FailureReason = reason
	return t, nil
}

// ApplyEvent performs the conditional state transition described in
// spec.md §4.1: UPDATE ... WHERE transfer_id = ? AND status = expected.
// Returns applied=false (a no-op) if the row was already moved by a
// concurrent handler invocation or duplicate delivery — the caller MUST
// treat that as success, not an error (handlers are idempotent by
// construction).
func (s *Store) ApplyEvent(ctx context.Context, transferID uuid.UUID, event domain.Event, reason string) (applied bool, t domain.Transfer, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, domain.Transfer{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanTransferTx(ctx, tx, transferID)
	if err != nil {
		return false, domain.Transfer{}, err
	}

	next, ok := domain.NextStatus(current.Status, event)
	if !ok {
		// Not a valid transition from the row's current state: no-op.
		return false, current, nil
	}

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		UPDATE transfers SET status = $1, failure_reason = $2, updated_at = $3
		WHERE transfer_id = $4 AND status = $5
	`, string(next), nullableReason(reason), now, transferID, string(current.Status))
	if err != nil {
		return false, domain.Transfer{}, fmt.Errorf("update transfer status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		// Lost the race to a concurrent handler or timeout tick: no-op.
		return false, current, nil
	}

	current.Status = next
	current.UpdatedAt = now
	if reason != "" {
		current.FailureReason = &reason
	}

	if err := s.appendTransitionOutbox(ctx, tx, current, event); err != nil {
		return false, domain.Transfer{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, domain.Transfer{}, fmt.Errorf("commit: %w", err)
	}
	return true, current, nil
}

func nullableReason(reason string) *string {
	if reason == "" {
		return nil
	}
	return &reason
}

func scanTransferTx(ctx context.Context, tx pgx.Tx, transferID uuid.UUID) (domain.Transfer, error) {
	row := tx.QueryRow(ctx, `
		SELECT transfer_id, sender_wallet_id, receiver_wallet_id, amount, status, failure_reason, timeout_at, created_at, updated_at
		FROM transfers WHERE transfer_id = $1 FOR UPDATE
	`, transferID)
	return scanTransfer(row)
}

// appendTransitionOutbox writes the outbox records a transition produces
// per the table in spec.md §4.1: terminal transitions emit
// TransferCompleted/TransferFailed; PENDING->DEBITED emits nothing.
func (s *Store) appendTransitionOutbox(ctx context.Context, tx pgx.Tx, t domain.Transfer, event domain.Event) error {
	if !domain.EmitsTerminalEvent(t.Status) {
		return nil
	}

	now := time.Now().UTC()
	if t.Status == domain.StatusCompleted {
		payload, err := json.Marshal(events.TransferCompletedPayload{TransferID: t.TransferID, Timestamp: now})
		if err != nil {
			return fmt.Errorf("marshal TransferCompleted: %w", err)
		}
		return insertOutbox(ctx, tx, outbox.NewRecord("Transfer", t.TransferID.String(), events.TransferCompleted, payload))
	}

	reason := ""
	if t.FailureReason != nil {
		reason = *t.FailureReason
	}
	payload, err := json.Marshal(events.TransferFailedPayload{TransferID: t.TransferID, FailureReason: reason, Timestamp: now})
	if err != nil {
		return fmt.Errorf("marshal TransferFailed: %w", err)
	}
	if err := insertOutbox(ctx, tx, outbox.NewRecord("Transfer", t.TransferID.String(), events.TransferFailed, payload)); err != nil {
		return err
	}

	// DEBITED->FAILED via credit-failure already carries the refund trigger
	// because the Ledger's WalletCreditFailed handler drove this
	// transition in the first place; the only case that needs a synthetic
	// WalletCreditFailed appended here is the timeout path, handled in
	// RecoverTimeout instead of here (event == EventTimeoutTick is
	// never the caller for a DEBITED->FAILED transition through this
	// method; see timeout.go).
	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, rec outbox.Record) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.AggregateType, rec.AggregateID, string(rec.EventType), rec.Payload, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox record: %w", err)
	}
	return nil
}
