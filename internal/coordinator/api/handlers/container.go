package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"saga-engine/internal/coordinator/domain"
)

// Store is the interface that breaks the circular dependency between
// handlers and the store package, following the teacher's
// HandlerDependencies idiom (internal/api/handlers/container.go).
type Store interface {
	CreateTransfer(ctx context.Context, senderID, receiverID uuid.UUID, amount int64, sagaTimeout time.Duration) (domain.Transfer, error)
	GetTransfer(ctx context.Context, transferID uuid.UUID) (domain.Transfer, error)
}

// Dependencies is what every coordinator handler closure needs.
type Dependencies interface {
	GetStore() Store
	GetSagaTimeout() time.Duration
}
