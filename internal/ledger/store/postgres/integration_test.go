package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saga-engine/internal/ledger/domain"
	"saga-engine/internal/ledger/store/postgres"
	"saga-engine/internal/platform/config"
	"saga-engine/internal/platform/events"
	"saga-engine/internal/platform/testenv"
)

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	pg := testenv.StartPostgres(t, "ledger_test")

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

func TestCreateAndGetWallet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	userID := uuid.New()
	wallet, err := store.CreateWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, wallet.UserID)
	assert.Equal(t, int64(0), wallet.Balance)

	fetched, err := store.GetWallet(ctx, wallet.WalletID)
	require.NoError(t, err)
	assert.Equal(t, wallet.WalletID, fetched.WalletID)

	_, err = store.CreateWallet(ctx, userID)
	assert.ErrorIs(t, err, postgres.ErrDuplicateUser)
}

func TestGetWalletNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetWallet(context.Background(), uuid.New())
	assert.ErrorIs(t, err, postgres.ErrWalletNotFound)
}

// TestApplyCreditReplayIsIdempotent exercises spec.md §4.2's idempotency
// key directly: replaying the same (walletId, transactionId) credit twice
// must not double-apply the balance change, and the second call must
// report IsDuplicate.
func TestApplyCreditReplayIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, uuid.New())
	require.NoError(t, err)

	transactionID := uuid.New()
	outboxEvt := &postgres.OutboxEvent{AggregateID: wallet.WalletID.String(), EventType: events.WalletCredited, Payload: []byte(`{}`)}

	first, err := store.Apply(ctx, wallet.WalletID, transactionID, 1000, domain.EntryCredit, outboxEvt)
	require.NoError(t, err)
	assert.False(t, first.IsDuplicate)
	assert.Equal(t, int64(1000), first.Wallet.Balance)

	second, err := store.Apply(ctx, wallet.WalletID, transactionID, 1000, domain.EntryCredit, outboxEvt)
	require.NoError(t, err)
	assert.True(t, second.IsDuplicate)
	assert.Equal(t, int64(1000), second.Wallet.Balance) // balance unchanged by the replay.

	got, err := store.GetWallet(ctx, wallet.WalletID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Balance)
}

func TestApplyDebitRejectsInsufficientBalance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, uuid.New())
	require.NoError(t, err)

	_, err = store.Apply(ctx, wallet.WalletID, uuid.New(), 100, domain.EntryDebit, nil)

	var insufficient domain.ErrInsufficientBalance
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(0), insufficient.Current)
	assert.Equal(t, int64(100), insufficient.Required)

	got, err := store.GetWallet(ctx, wallet.WalletID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Balance) // rejected debit leaves the balance untouched.
}

func TestApplyDebitOnMissingWallet(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Apply(context.Background(), uuid.New(), uuid.New(), 100, domain.EntryDebit, nil)
	assert.ErrorIs(t, err, postgres.ErrWalletNotFound)
}

func TestAppendOutboxInsertsStandaloneRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.AppendOutbox(ctx, uuid.New().String(), events.WalletDebitFailed, []byte(`{"reason":"wallet not found"}`))
	require.NoError(t, err)
}
