package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saga-engine/internal/ledger/domain"
	"saga-engine/internal/ledger/events"
	"saga-engine/internal/ledger/store/postgres"
	platformevents "saga-engine/internal/platform/events"
	"saga-engine/internal/platform/retrybackoff"
)

// fakeStore is an in-memory stand-in for postgres.Store, used only to
// exercise the handler's dispatch and failure-classification logic.
type fakeStore struct {
	applyErr      error
	applyErrAfter int // applyErr fires only once call count passes this; 0 means every call
	calls         int
	applied       []appliedCall
	outboxWrites  []outboxWrite
	deadLetters   []domain.DeadLetter
}

type appliedCall struct {
	walletID, transactionID uuid.UUID
	amount                  int64
	entryType               domain.EntryType
}

type outboxWrite struct {
	aggregateID string
	eventType   platformevents.EventType
	payload     []byte
}

func (f *fakeStore) Apply(ctx context.Context, walletID, transactionID uuid.UUID, amount int64, entryType domain.EntryType, outboxEvt *postgres.OutboxEvent) (domain.ApplyResult, error) {
	f.calls++
	f.applied = append(f.applied, appliedCall{walletID, transactionID, amount, entryType})

	if f.applyErr != nil && f.calls > f.applyErrAfter {
		return domain.ApplyResult{}, f.applyErr
	}
	if outboxEvt != nil {
		f.outboxWrites = append(f.outboxWrites, outboxWrite{outboxEvt.AggregateID, outboxEvt.EventType, outboxEvt.Payload})
	}
	return domain.ApplyResult{Wallet: domain.Wallet{WalletID: walletID, Balance: 1000}}, nil
}

func (f *fakeStore) AppendOutbox(ctx context.Context, aggregateID string, eventType platformevents.EventType, payload []byte) error {
	f.outboxWrites = append(f.outboxWrites, outboxWrite{aggregateID, eventType, payload})
	return nil
}

func (f *fakeStore) InsertDeadLetter(ctx context.Context, originalTopic string, originalPayload []byte, errMsg, errStack string, attemptCount int) (domain.DeadLetter, error) {
	dl := domain.DeadLetter{ID: uuid.New(), OriginalTopic: originalTopic, ErrorMessage: errMsg, AttemptCount: attemptCount}
	f.deadLetters = append(f.deadLetters, dl)
	return dl, nil
}

func marshalTransferInitiated(t *testing.T, p platformevents.TransferInitiatedPayload) []byte {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return b
}

func TestHandleTransferInitiatedSuccess(t *testing.T) {
	store := &fakeStore{}
	h := events.NewHandler(store, retrybackoff.DefaultPolicy())

	transferID, sender, receiver := uuid.New(), uuid.New(), uuid.New()
	payload := marshalTransferInitiated(t, platformevents.TransferInitiatedPayload{
		TransferID: transferID, SenderWalletID: sender, ReceiverWalletID: receiver, Amount: 500, Timestamp: time.Now().UTC(),
	})

	err := h.Handle(context.Background(), platformevents.TopicTransferInitiated, nil, payload)

	require.NoError(t, err)
	require.Len(t, store.applied, 1)
	assert.Equal(t, domain.EntryDebit, store.applied[0].entryType)
	assert.Equal(t, sender, store.applied[0].walletID)
	require.Len(t, store.outboxWrites, 1)
	assert.Equal(t, platformevents.WalletDebited, store.outboxWrites[0].eventType)
}

func TestHandleTransferInitiatedInsufficientBalance(t *testing.T) {
	store := &fakeStore{applyErr: domain.ErrInsufficientBalance{Current: 100, Required: 500}}
	h := events.NewHandler(store, retrybackoff.DefaultPolicy())

	transferID, sender, receiver := uuid.New(), uuid.New(), uuid.New()
	payload := marshalTransferInitiated(t, platformevents.TransferInitiatedPayload{
		TransferID: transferID, SenderWalletID: sender, ReceiverWalletID: receiver, Amount: 500, Timestamp: time.Now().UTC(),
	})

	err := h.Handle(context.Background(), platformevents.TopicTransferInitiated, nil, payload)

	require.NoError(t, err) // business failure is not a handler error: it is recorded as an event.
	require.Len(t, store.outboxWrites, 1)
	assert.Equal(t, platformevents.WalletDebitFailed, store.outboxWrites[0].eventType)

	var failed platformevents.WalletDebitFailedPayload
	require.NoError(t, json.Unmarshal(store.outboxWrites[0].payload, &failed))
	assert.Contains(t, failed.Reason, "insufficient balance")
}

func TestHandleTransferInitiatedTransientErrorPropagates(t *testing.T) {
	store := &fakeStore{applyErr: context.DeadlineExceeded}
	h := events.NewHandler(store, retrybackoff.DefaultPolicy())

	payload := marshalTransferInitiated(t, platformevents.TransferInitiatedPayload{
		TransferID: uuid.New(), SenderWalletID: uuid.New(), ReceiverWalletID: uuid.New(), Amount: 500, Timestamp: time.Now().UTC(),
	})

	err := h.Handle(context.Background(), platformevents.TopicTransferInitiated, nil, payload)

	assert.Error(t, err) // transient errors must propagate so the broker redelivers.
	assert.Empty(t, store.outboxWrites)
}

func TestAttemptRefundIsDeterministicAcrossCalls(t *testing.T) {
	store := &fakeStore{}
	h := events.NewHandler(store, retrybackoff.DefaultPolicy())

	transferID, sender := uuid.New(), uuid.New()
	payload, err := json.Marshal(platformevents.WalletCreditFailedPayload{
		TransferID: transferID, SenderWalletID: sender, Amount: 300, Reason: "wallet not found", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, h.HandleReplay(context.Background(), platformevents.TopicWalletCreditFailed, nil, payload))
	require.NoError(t, h.HandleReplay(context.Background(), platformevents.TopicWalletCreditFailed, nil, payload))

	require.Len(t, store.applied, 2)
	assert.Equal(t, store.applied[0].transactionID, store.applied[1].transactionID)
	assert.NotEqual(t, transferID, store.applied[0].transactionID)
}

func TestOnWalletCreditFailedQuarantinesAfterExhaustion(t *testing.T) {
	store := &fakeStore{applyErr: context.DeadlineExceeded}
	h := events.NewHandler(store, retrybackoff.DefaultPolicy())

	payload, err := json.Marshal(platformevents.WalletCreditFailedPayload{
		TransferID: uuid.New(), SenderWalletID: uuid.New(), Amount: 300, Reason: "wallet not found", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	handleErr := h.Handle(context.Background(), platformevents.TopicWalletCreditFailed, nil, payload)

	assert.NoError(t, handleErr) // message is still acked to avoid head-of-line blocking.
	require.Len(t, store.deadLetters, 1)
	assert.Equal(t, 3, store.deadLetters[0].AttemptCount)
}

func TestHandleReplayReportsFailureDirectly(t *testing.T) {
	store := &fakeStore{applyErr: context.DeadlineExceeded}
	h := events.NewHandler(store, retrybackoff.DefaultPolicy())

	payload, err := json.Marshal(platformevents.WalletCreditFailedPayload{
		TransferID: uuid.New(), SenderWalletID: uuid.New(), Amount: 300, Reason: "wallet not found", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	replayErr := h.HandleReplay(context.Background(), platformevents.TopicWalletCreditFailed, nil, payload)

	assert.Error(t, replayErr)
	assert.Empty(t, store.deadLetters) // replay never writes a second dead letter.
}
