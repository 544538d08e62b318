package events

import (
	"time"

	"github.com/google/uuid"
)

// All payloads carry transferId and timestamp in ISO-8601 UTC (spec.md §6).
// Time fields use time.Time with RFC3339Nano JSON encoding, which Go's
// encoding/json renders as ISO-8601.

// TransferInitiatedPayload is emitted by the Coordinator on saga start.
type TransferInitiatedPayload struct {
	TransferID       uuid.UUID `json:"transferId"`
	SenderWalletID   uuid.UUID `json:"senderWalletId"`
	ReceiverWalletID uuid.UUID `json:"receiverWalletId"`
	Amount           int64     `json:"amount"`
	Timestamp        time.Time `json:"timestamp"`
}

// TransferCompletedPayload is emitted by the Coordinator when a saga
// reaches COMPLETED.
type TransferCompletedPayload struct {
	TransferID uuid.UUID `json:"transferId"`
	Timestamp  time.Time `json:"timestamp"`
}

// TransferFailedPayload is emitted by the Coordinator when a saga reaches
// FAILED.
type TransferFailedPayload struct {
	TransferID    uuid.UUID `json:"transferId"`
	FailureReason string    `json:"failureReason"`
	Timestamp     time.Time `json:"timestamp"`
}

// WalletDebitedPayload is emitted by the Ledger after a successful debit.
// ReceiverWalletID travels with it because the Ledger's credit step needs
// to know which wallet to credit next, and the Ledger keeps no
// cross-aggregate join back to the Transfer row (spec.md §4.4).
type WalletDebitedPayload struct {
	TransferID       uuid.UUID `json:"transferId"`
	WalletID         uuid.UUID `json:"walletId"`
	ReceiverWalletID uuid.UUID `json:"receiverWalletId"`
	Amount           int64     `json:"amount"`
	Timestamp        time.Time `json:"timestamp"`
}

// WalletDebitFailedPayload is emitted by the Ledger when the debit step
// fails (wallet missing or insufficient balance).
type WalletDebitFailedPayload struct {
	TransferID uuid.UUID `json:"transferId"`
	WalletID   uuid.UUID `json:"walletId"`
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// WalletCreditedPayload is emitted by the Ledger after a successful
// credit.
type WalletCreditedPayload struct {
	TransferID uuid.UUID `json:"transferId"`
	WalletID   uuid.UUID `json:"walletId"`
	Amount     int64     `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// WalletCreditFailedPayload is emitted by the Ledger when the credit step
// fails, or synthesized by the Coordinator's timeout scanner to drive
// compensation (spec.md §4.5). SenderWalletID is the wallet to refund.
type WalletCreditFailedPayload struct {
	TransferID     uuid.UUID `json:"transferId"`
	SenderWalletID uuid.UUID `json:"senderWalletId"`
	Amount         int64     `json:"amount"`
	Reason         string    `json:"reason"`
	Timestamp      time.Time `json:"timestamp"`
}

// WalletRefundedPayload is emitted by the Ledger after a successful
// compensating refund. Observed by the Coordinator for audit only.
type WalletRefundedPayload struct {
	TransferID uuid.UUID `json:"transferId"`
	WalletID   uuid.UUID `json:"walletId"`
	Amount     int64     `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}
