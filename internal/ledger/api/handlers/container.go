package handlers

import (
	"context"

	"github.com/google/uuid"

	"saga-engine/internal/ledger/domain"
)

// WalletStore is the interface that breaks the circular dependency between
// handlers and the store package, following the teacher's
// HandlerDependencies idiom.
type WalletStore interface {
	CreateWallet(ctx context.Context, userID uuid.UUID) (domain.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (domain.Wallet, error)
}

// DLQAdmin is the admin surface the DLQ handlers need, satisfied by
// dlq.Admin.
type DLQAdmin interface {
	List(ctx context.Context, status domain.DeadLetterStatus) ([]domain.DeadLetter, error)
	Get(ctx context.Context, id uuid.UUID) (domain.DeadLetter, error)
	Replay(ctx context.Context, id uuid.UUID) (success bool, message string, err error)
}

// Dependencies is what every ledger handler closure needs.
type Dependencies interface {
	GetWalletStore() WalletStore
	GetDLQAdmin() DLQAdmin
}
