package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"saga-engine/internal/coordinator/domain"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		current domain.Status
		event   domain.Event
		want    domain.Status
		wantOK  bool
	}{
		{"pending debited", domain.StatusPending, domain.EventWalletDebited, domain.StatusDebited, true},
		{"pending debit failed", domain.StatusPending, domain.EventWalletDebitFailed, domain.StatusFailed, true},
		{"pending timeout", domain.StatusPending, domain.EventTimeoutTick, domain.StatusFailed, true},
		{"debited credited", domain.StatusDebited, domain.EventWalletCredited, domain.StatusCompleted, true},
		{"debited credit failed", domain.StatusDebited, domain.EventWalletCreditFailed, domain.StatusFailed, true},
		{"debited timeout", domain.StatusDebited, domain.EventTimeoutTick, domain.StatusFailed, true},
		{"pending credited is invalid", domain.StatusPending, domain.EventWalletCredited, domain.StatusPending, false},
		{"completed is terminal", domain.StatusCompleted, domain.EventWalletDebited, domain.StatusCompleted, false},
		{"failed is terminal", domain.StatusFailed, domain.EventWalletCredited, domain.StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := domain.NextStatus(tt.current, tt.event)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, domain.StatusPending.IsTerminal())
	assert.False(t, domain.StatusDebited.IsTerminal())
	assert.True(t, domain.StatusCompleted.IsTerminal())
	assert.True(t, domain.StatusFailed.IsTerminal())
}

func TestEmitsTerminalEvent(t *testing.T) {
	assert.False(t, domain.EmitsTerminalEvent(domain.StatusPending))
	assert.False(t, domain.EmitsTerminalEvent(domain.StatusDebited))
	assert.True(t, domain.EmitsTerminalEvent(domain.StatusCompleted))
	assert.True(t, domain.EmitsTerminalEvent(domain.StatusFailed))
}
