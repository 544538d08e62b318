package idgen_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"saga-engine/internal/platform/idgen"
)

func TestNewReturnsDistinctIDs(t *testing.T) {
	a := idgen.New()
	b := idgen.New()
	assert.NotEqual(t, uuid.Nil, a)
	assert.NotEqual(t, a, b)
}

func TestRefundTransactionIDIsDeterministic(t *testing.T) {
	transferID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	first := idgen.RefundTransactionID(transferID)
	second := idgen.RefundTransactionID(transferID)

	assert.Equal(t, first, second)
	assert.NotEqual(t, transferID, first)
}

func TestRefundTransactionIDVariesByTransfer(t *testing.T) {
	a := idgen.RefundTransactionID(uuid.MustParse("11111111-1111-1111-1111-111111111111"))
	b := idgen.RefundTransactionID(uuid.MustParse("22222222-2222-2222-2222-222222222222"))
	assert.NotEqual(t, a, b)
}
