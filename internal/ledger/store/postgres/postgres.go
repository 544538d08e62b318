// Package postgres implements the Ledger's store: wallets, ledger entries,
// outbox, and the dead-letter queue, grounded on the teacher's
// internal/infrastructure/database/postgres.PostgresRepository, in
// particular its AtomicDepositWithIdempotency idempotency-check-then-lock
// shape (spec.md §4.2).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saga-engine/internal/ledger/domain"
	"saga-engine/internal/platform/config"
	"saga-engine/internal/platform/events"
	"saga-engine/internal/platform/idgen"
	"saga-engine/internal/platform/logging"
	"saga-engine/internal/platform/outbox"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrDuplicateUser  = errors.New("user already has a wallet")
)

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

	logging.Info("ledger store connected", map[string]interface{}{"database": cfg.Database})
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// CreateWallet inserts a zero-balance wallet for userID, or ErrDuplicateUser
// if one already exists (spec.md §6 "POST /wallets").
func (s *Store) CreateWallet(ctx context.Context, userID uuid.UUID) (domain.Wallet, error) {
	now := time.Now().UTC()
	w := domain.Wallet{WalletID: idgen.New(), UserID: userID, Balance: 0, CreatedAt: now, UpdatedAt: now}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallets (wallet_id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
	`, w.WalletID, userID, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Wallet{}, ErrDuplicateUser
		}
		return domain.Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	return w, nil
}

// GetWallet returns a wallet by id, or ErrWalletNotFound.
func (s *Store) GetWallet(ctx context.Context, walletID uuid.UUID) (domain.Wallet, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT wallet_id, user_id, balance, created_at, updated_at FROM wallets WHERE wallet_id = $1
	`, walletID)
	var w domain.Wallet
	if err := row.Scan(&w.WalletID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wallet{}, ErrWalletNotFound
		}
		return domain.Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}

// OutboxEvent is the optional event an Apply call appends alongside the
// ledger mutation, already rendered to JSON by the caller since every
// payload's fields are known before the balance update runs (spec.md §4.2
// step 5).
type OutboxEvent struct {
	AggregateID string
	EventType   events.EventType
	Payload     []byte
}

// Apply performs one idempotent, constraint-checked ledger mutation
// (spec.md §4.2). It never returns a transient error for business failure:
// ErrWalletNotFound and domain.ErrInsufficientBalance are returned as the
// err value, letting the event handler translate them into the matching
// *Failed outbox event without retrying.
func (s *Store) Apply(ctx context.Context, walletID, transactionID uuid.UUID, amount int64, entryType domain.EntryType, outboxEvt *OutboxEvent) (domain.ApplyResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ApplyResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Step 1: idempotency short-circuit (spec.md §4.2 step 1).
	existing, wallet, err := lookupExistingEntry(ctx, tx, walletID, transactionID)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	if existing != nil {
		return domain.ApplyResult{Entry: *existing, Wallet: wallet, IsDuplicate: true}, nil
	}

	// Step 2-3: atomic balance update guarded by the row lock the UPDATE's
	// WHERE clause acquires (spec.md §4.2 step 2, §4.2 "Concurrency").
	var newBalance int64
	var updateErr error
	if entryType == domain.EntryDebit {
		updateErr = tx.QueryRow(ctx, `
			UPDATE wallets SET balance = balance - $1, updated_at = now()
			WHERE wallet_id = $2 AND balance >= $1
			RETURNING balance
		`, amount, walletID).Scan(&newBalance)
	} else {
		updateErr = tx.QueryRow(ctx, `
			UPDATE wallets SET balance = balance + $1, updated_at = now()
			WHERE wallet_id = $2
			RETURNING balance
		`, amount, walletID).Scan(&newBalance)
	}

	if updateErr != nil {
		if !errors.Is(updateErr, pgx.ErrNoRows) {
			return domain.ApplyResult{}, fmt.Errorf("update wallet balance: %w", updateErr)
		}
		// Rows-affected was 0: distinguish missing wallet from failed predicate.
		exists, checkErr := walletExists(ctx, tx, walletID)
		if checkErr != nil {
			return domain.ApplyResult{}, checkErr
		}
		if !exists {
			return domain.ApplyResult{}, ErrWalletNotFound
		}
		current, balErr := currentBalance(ctx, tx, walletID)
		if balErr != nil {
			return domain.ApplyResult{}, balErr
		}
		return domain.ApplyResult{}, domain.ErrInsufficientBalance{Current: current, Required: amount}
	}

	// Step 4: append the ledger entry.
	now := time.Now().UTC()
	entry := domain.LedgerEntry{
		EntryID:       idgen.New(),
		WalletID:      walletID,
		TransactionID: transactionID,
		Type:          entryType,
		Amount:        amount,
		BalanceAfter:  newBalance,
		CreatedAt:     now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_ledger_entries (entry_id, wallet_id, transaction_id, type, amount, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.EntryID, entry.WalletID, entry.TransactionID, string(entry.Type), entry.Amount, entry.BalanceAfter, entry.CreatedAt)
	if err != nil {
		return domain.ApplyResult{}, fmt.Errorf("insert ledger entry: %w", err)
	}

	// Step 5: the outbox record, only when the caller supplied one.
	if outboxEvt != nil {
		if err := insertOutbox(ctx, tx, outbox.NewRecord("Wallet", outboxEvt.AggregateID, outboxEvt.EventType, outboxEvt.Payload)); err != nil {
			return domain.ApplyResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ApplyResult{}, fmt.Errorf("commit: %w", err)
	}

	return domain.ApplyResult{
		Entry:  entry,
		Wallet: domain.Wallet{WalletID: walletID, Balance: newBalance, UpdatedAt: now},
	}, nil
}

func lookupExistingEntry(ctx context.Context, tx pgx.Tx, walletID, transactionID uuid.UUID) (*domain.LedgerEntry, domain.Wallet, error) {
	row := tx.QueryRow(ctx, `
		SELECT entry_id, wallet_id, transaction_id, type, amount, balance_after, created_at
		FROM wallet_ledger_entries WHERE wallet_id = $1 AND transaction_id = $2
	`, walletID, transactionID)

	var e domain.LedgerEntry
	var entryType string
	err := row.Scan(&e.EntryID, &e.WalletID, &e.TransactionID, &entryType, &e.Amount, &e.BalanceAfter, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Wallet{}, nil
	}
	if err != nil {
		return nil, domain.Wallet{}, fmt.Errorf("check ledger idempotency: %w", err)
	}
	e.Type = domain.EntryType(entryType)

	wRow := tx.QueryRow(ctx, `SELECT wallet_id, balance, created_at, updated_at FROM wallets WHERE wallet_id = $1`, walletID)
	var w domain.Wallet
	if err := wRow.Scan(&w.WalletID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, domain.Wallet{}, fmt.Errorf("load wallet for duplicate entry: %w", err)
	}
	return &e, w, nil
}

// AppendOutbox writes a standalone outbox record with no accompanying
// ledger mutation — used for the *Failed variants, which replace the
// mutation rather than follow it (spec.md §4.4).
func (s *Store) AppendOutbox(ctx context.Context, aggregateID string, eventType events.EventType, payload []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, idgen.New(), "Wallet", aggregateID, string(eventType), payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox record: %w", err)
	}
	return nil
}

func walletExists(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE wallet_id = $1)`, walletID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check wallet existence: %w", err)
	}
	return exists, nil
}

func currentBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE wallet_id = $1`, walletID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("read current balance: %w", err)
	}
	return balance, nil
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

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
