package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"saga-engine/internal/ledger/domain"
)

func TestEntryTypeSign(t *testing.T) {
	assert.Equal(t, int64(-1), domain.EntryDebit.Sign())
	assert.Equal(t, int64(1), domain.EntryCredit.Sign())
	assert.Equal(t, int64(1), domain.EntryRefund.Sign())
}

func TestErrInsufficientBalance(t *testing.T) {
	err := domain.ErrInsufficientBalance{Current: 500, Required: 1000}
	assert.EqualError(t, err, "insufficient balance: have 500, need 1000")
}
