package dlq_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saga-engine/internal/ledger/dlq"
	"saga-engine/internal/ledger/domain"
)

type fakeStore struct {
	entries map[uuid.UUID]domain.DeadLetter
}

func newFakeStore(entries ...domain.DeadLetter) *fakeStore {
	s := &fakeStore{entries: map[uuid.UUID]domain.DeadLetter{}}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s
}

func (s *fakeStore) ListDeadLetters(ctx context.Context, status domain.DeadLetterStatus) ([]domain.DeadLetter, error) {
	var out []domain.DeadLetter
	for _, e := range s.entries {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetDeadLetter(ctx context.Context, id uuid.UUID) (domain.DeadLetter, error) {
	e, ok := s.entries[id]
	if !ok {
		return domain.DeadLetter{}, errors.New("not found")
	}
	return e, nil
}

func (s *fakeStore) MarkDeadLetterProcessed(ctx context.Context, id uuid.UUID) error {
	e := s.entries[id]
	e.Status = domain.DeadLetterProcessed
	s.entries[id] = e
	return nil
}

func (s *fakeStore) MarkDeadLetterFailed(ctx context.Context, id uuid.UUID) error {
	e := s.entries[id]
	e.Status = domain.DeadLetterFailed
	s.entries[id] = e
	return nil
}

func TestReplaySuccessMarksProcessed(t *testing.T) {
	id := uuid.New()
	store := newFakeStore(domain.DeadLetter{ID: id, OriginalTopic: "wallet.credit-failed", Status: domain.DeadLetterPending})

	admin := dlq.NewAdmin(store, func(ctx context.Context, topic string, key, value []byte) error {
		return nil
	})

	success, message, err := admin.Replay(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, success)
	assert.Equal(t, "replayed successfully", message)
	assert.Equal(t, domain.DeadLetterProcessed, store.entries[id].Status)
}

func TestReplayFailureMarksFailed(t *testing.T) {
	id := uuid.New()
	store := newFakeStore(domain.DeadLetter{ID: id, OriginalTopic: "wallet.credit-failed", Status: domain.DeadLetterPending})

	admin := dlq.NewAdmin(store, func(ctx context.Context, topic string, key, value []byte) error {
		return errors.New("still insufficient balance")
	})

	success, message, err := admin.Replay(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, success)
	assert.Equal(t, "still insufficient balance", message)
	assert.Equal(t, domain.DeadLetterFailed, store.entries[id].Status)
}

func TestReplayAlreadyProcessedIsNoOp(t *testing.T) {
	id := uuid.New()
	store := newFakeStore(domain.DeadLetter{ID: id, OriginalTopic: "wallet.credit-failed", Status: domain.DeadLetterProcessed})

	called := false
	admin := dlq.NewAdmin(store, func(ctx context.Context, topic string, key, value []byte) error {
		called = true
		return nil
	})

	success, message, err := admin.Replay(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, success)
	assert.Equal(t, "already processed", message)
	assert.False(t, called)
}
