// Package domain implements the Ledger's wallet and entry model (spec.md
// §4.2). Balance is carried as int64 minor units throughout; no floating
// point value ever represents money here.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Wallet is a single account's current balance (spec.md §3).
type Wallet struct {
	WalletID  uuid.UUID
	UserID    uuid.UUID
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryType is the closed set of ledger entry kinds (spec.md §3, §4.2).
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
	EntryRefund EntryType = "REFUND"
)

// LedgerEntry is one durable, idempotent application of a transaction
// against a wallet. The pair (WalletID, TransactionID) is unique: a
// second Apply call carrying the same pair is a no-op that returns the
// result of the first (spec.md §4.2 "Idempotency").
type LedgerEntry struct {
	EntryID       uuid.UUID
	WalletID      uuid.UUID
	TransactionID uuid.UUID
	Type          EntryType
	Amount        int64
	BalanceAfter  int64
	CreatedAt     time.Time
}

// ErrWalletNotFound indicates the wallet row doesn't exist.
var ErrWalletNotFound = errors.New("wallet not found")

// ErrInsufficientBalance indicates a DEBIT would drive balance negative
// (spec.md §4.2 invariant: "balance must never go negative"). Carries the
// current balance and the amount that was required so the *Failed event's
// reason can be specific.
type ErrInsufficientBalance struct {
	Current  int64
	Required int64
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.Current, e.Required)
}
