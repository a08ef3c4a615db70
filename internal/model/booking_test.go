package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_AllowedMoves(t *testing.T) {
	allowed := [][2]string{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s should be allowed", pair[0], pair[1])
	}
}

func TestCanTransition_TerminalStates(t *testing.T) {
	for _, terminal := range []string{StatusCancelled, StatusCompleted} {
		for _, to := range []string{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted} {
			assert.False(t, CanTransition(terminal, to), "%s -> %s should be rejected", terminal, to)
		}
	}
}

func TestCanTransition_RejectsSelfAndBackward(t *testing.T) {
	assert.False(t, CanTransition(StatusPending, StatusPending))
	assert.False(t, CanTransition(StatusConfirmed, StatusPending))
	assert.False(t, CanTransition(StatusPending, StatusCompleted))
	assert.False(t, CanTransition("unknown", StatusConfirmed))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted} {
		assert.True(t, ValidStatus(s))
	}
	assert.False(t, ValidStatus("paid"))
	assert.False(t, ValidStatus(""))
}

func TestTicketLine_JSONRoundTripPreservesOrder(t *testing.T) {
	lines := []TicketLine{
		{Type: TierVIP, Quantity: 1, UnitPrice: decimal.RequireFromString("75.00")},
		{Type: TierRegular, Quantity: 2, UnitPrice: decimal.RequireFromString("50.00")},
	}

	raw, err := json.Marshal(lines)
	require.NoError(t, err)

	var back []TicketLine
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Len(t, back, 2)
	assert.Equal(t, TierVIP, back[0].Type)
	assert.Equal(t, TierRegular, back[1].Type)
	assert.True(t, back[0].UnitPrice.Equal(decimal.NewFromInt(75)))
}
