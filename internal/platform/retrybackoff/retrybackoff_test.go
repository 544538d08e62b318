package retrybackoff_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"saga-engine/internal/platform/retrybackoff"
)

func TestRunSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := retrybackoff.Run(context.Background(), retrybackoff.DefaultPolicy(), func() error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunRetriesTransientErrorsUpToMaxAttempts(t *testing.T) {
	calls := 0
	transient := errors.New("store unavailable")

	err := retrybackoff.Run(context.Background(), retrybackoff.DefaultPolicy(), func() error {
		calls++
		return transient
	})

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestRunStopsImmediatelyOnPermanentError(t *testing.T) {
	calls := 0
	business := errors.New("insufficient balance")

	err := retrybackoff.Run(context.Background(), retrybackoff.DefaultPolicy(), func() error {
		calls++
		return retrybackoff.Permanent(business)
	})

	assert.ErrorIs(t, err, business)
	assert.Equal(t, 1, calls)
}

func TestRunSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := retrybackoff.Run(context.Background(), retrybackoff.DefaultPolicy(), func() error {
		calls++
		if calls < 2 {
			return errors.New("temporary")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
