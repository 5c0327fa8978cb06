package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBotStateUpdateAppliesOnlySetFields(t *testing.T) {
	opened := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state := &BotState{
		ConfigID:          uuid.New(),
		PositionOpen:      true,
		ActiveOrderID:     "order-1",
		PositionStartTime: &opened,
		ActiveTrades:      1,
		LastError:         "stale",
	}

	update := &BotStateUpdate{
		LastError: StringPtr(""),
	}
	update.Apply(state)

	assert.True(t, state.PositionOpen, "unset fields stay untouched")
	assert.Equal(t, "order-1", state.ActiveOrderID)
	assert.Equal(t, &opened, state.PositionStartTime)
	assert.Equal(t, 1, state.ActiveTrades)
	assert.Equal(t, "", state.LastError)
}

func TestBotStateUpdateClosePosition(t *testing.T) {
	opened := time.Now().UTC()
	state := &BotState{
		PositionOpen:      true,
		ActiveOrderID:     "order-9",
		PositionStartTime: &opened,
		ActiveTrades:      1,
	}

	update := &BotStateUpdate{
		PositionOpen:      BoolPtr(false),
		ActiveOrderID:     StringPtr(""),
		ClearPositionTime: true,
		ActiveTrades:      IntPtr(0),
	}
	update.Apply(state)

	assert.False(t, state.PositionOpen)
	assert.Empty(t, state.ActiveOrderID)
	assert.Nil(t, state.PositionStartTime)
	assert.Zero(t, state.ActiveTrades)
}

func TestBotStateUpdateEmptyIsNoop(t *testing.T) {
	state := &BotState{PositionOpen: true, ActiveTrades: 2}
	before := *state

	(&BotStateUpdate{}).Apply(state)

	assert.Equal(t, before.PositionOpen, state.PositionOpen)
	assert.Equal(t, before.ActiveTrades, state.ActiveTrades)
}

func TestTimeframeDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"1m":  time.Minute,
		"5m":  5 * time.Minute,
		"15m": 15 * time.Minute,
		"30m": 30 * time.Minute,
		"1h":  time.Hour,
		"4h":  4 * time.Hour,
		"1d":  24 * time.Hour,
	}
	for tf, want := range cases {
		got, err := TimeframeDuration(tf)
		assert.NoError(t, err)
		assert.Equal(t, want, got, tf)
	}

	_, err := TimeframeDuration("3w")
	assert.ErrorIs(t, err, ErrInvalidTimeframe)
	_, err = TimeframeDuration("")
	assert.ErrorIs(t, err, ErrInvalidTimeframe)
}
