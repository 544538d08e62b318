package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saga-engine/internal/coordinator/domain"
	"saga-engine/internal/coordinator/store/postgres"
	"saga-engine/internal/platform/config"
	"saga-engine/internal/platform/testenv"
)

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	pg := testenv.StartPostgres(t, "coordinator_test")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := postgres.New(ctx, config.StoreConfig{
		Host: pg.Host, Port: pg.Port, Database: pg.Database, User: pg.User, Password: pg.Password,
		SSLMode: "disable", MaxOpenConns: 5, MaxIdleConns: 1, ConnMaxLifetime: 5 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestCreateAndGetTransfer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t1, err := store.CreateTransfer(ctx, uuid.New(), uuid.New(), 500, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, t1.Status)

	got, err := store.GetTransfer(ctx, t1.TransferID)
	require.NoError(t, err)
	assert.Equal(t, t1.TransferID, got.TransferID)
	assert.Equal(t, int64(500), got.Amount)
}

func TestGetTransferNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetTransfer(context.Background(), uuid.New())
	assert.ErrorIs(t, err, postgres.ErrNotFound)
}

func TestApplyEventFollowsTransitionTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateTransfer(ctx, uuid.New(), uuid.New(), 500, time.Minute)
	require.NoError(t, err)

	applied, after, err := store.ApplyEvent(ctx, created.TransferID, domain.EventWalletDebited, "")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.StatusDebited, after.Status)

	applied, after, err = store.ApplyEvent(ctx, created.TransferID, domain.EventWalletCredited, "")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.StatusCompleted, after.Status)
}

// TestApplyEventDuplicateDeliveryIsANoOp replays the same event against an
// already-terminal transfer, the shape a redelivered broker message takes
// (spec.md §4.1 "all other transitions are rejected, silently, as
// no-ops").
func TestApplyEventDuplicateDeliveryIsANoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateTransfer(ctx, uuid.New(), uuid.New(), 500, time.Minute)
	require.NoError(t, err)

	applied, _, err := store.ApplyEvent(ctx, created.TransferID, domain.EventWalletDebitFailed, "insufficient balance")
	require.NoError(t, err)
	require.True(t, applied)

	applied, after, err := store.ApplyEvent(ctx, created.TransferID, domain.EventWalletDebitFailed, "insufficient balance")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, domain.StatusFailed, after.Status)
}

func TestFindStuckTransfersAndRecoverTimeout(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateTransfer(ctx, uuid.New(), uuid.New(), 500, -time.Second) // already past deadline
	require.NoError(t, err)

	stuck, err := store.FindStuckTransfers(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, created.TransferID, stuck[0].TransferID)

	applied, err := store.RecoverTimeout(ctx, created.TransferID)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := store.GetTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)

	// A second recovery attempt against the now-terminal transfer is a
	// no-op, not an error.
	applied, err = store.RecoverTimeout(ctx, created.TransferID)
	require.NoError(t, err)
	assert.False(t, applied)
}
