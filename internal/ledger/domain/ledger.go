package domain

import "github.com/google/uuid"

// ApplyResult is the outcome of one idempotent ledger application (spec.md
// §4.2). IsDuplicate is true when (WalletID, TransactionID) already had an
// entry — the caller must not write an outbox event in that case.
type ApplyResult struct {
	Entry       LedgerEntry
	Wallet      Wallet
	IsDuplicate bool
}

// Sign reports the signed effect of the entry type on a wallet's
// balance, used by callers (and tests) verifying the conservation
// invariant: balance = sum(credits) + sum(refunds) - sum(debits).
func (t EntryType) Sign() int64 {
	if t == EntryDebit {
		return -1
	}
	return 1
}
