package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCircuitBreaker_Escalation(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	ctx := context.Background()
	loss := TradeLoss

	tests := []struct {
		losses     int
		state      BreakerState
		multiplier float64
	}{
		{1, BreakerNormal, 1.0},
		{2, BreakerNormal, 1.0},
		{3, BreakerReduced, 0.5},
		{4, BreakerReduced, 0.5},
		{5, BreakerPaused, 0},
	}
	for _, tt := range tests {
		clock.Advance(time.Minute)
		status := e.CheckCircuitBreaker(ctx, "swing_trade", &loss)
		assert.Equal(t, tt.losses, status.ConsecutiveLosses)
		assert.Equal(t, tt.state, status.State, "after %d losses", tt.losses)
		assert.Equal(t, tt.multiplier, status.RiskMultiplier)
		require.NotNil(t, status.LastLoss)
		assert.Equal(t, clock.Now(), *status.LastLoss)
	}

	status := e.CheckCircuitBreaker(ctx, "swing_trade", nil)
	assert.True(t, status.Paused)
	require.NotNil(t, status.PausedUntil)
	assert.Equal(t, testStart.Add(5*time.Minute+24*time.Hour), *status.PausedUntil)
}

func TestCheckCircuitBreaker_WinResets(t *testing.T) {
	e, _, _ := newTestEngine(t)
	recordLosses(t, e, "swing_trade", 4)

	win := TradeWin
	status := e.CheckCircuitBreaker(context.Background(), "swing_trade", &win)
	assert.Equal(t, BreakerNormal, status.State)
	assert.Zero(t, status.ConsecutiveLosses)
	assert.Nil(t, status.LastLoss)
}

func TestCheckCircuitBreaker_WinLiftsPause(t *testing.T) {
	e, _, _ := newTestEngine(t)
	recordLosses(t, e, "swing_trade", 5)

	win := TradeWin
	status := e.CheckCircuitBreaker(context.Background(), "swing_trade", &win)
	assert.Equal(t, BreakerNormal, status.State)
	assert.False(t, status.Paused)
}

func TestCheckCircuitBreaker_PauseExpiry(t *testing.T) {
	e, clock, store := newTestEngine(t)
	ctx := context.Background()
	recordLosses(t, e, "swing_trade", 5)
	saves := store.Saves()

	clock.Advance(24*time.Hour - time.Second)
	assert.Equal(t, BreakerPaused, e.CheckCircuitBreaker(ctx, "swing_trade", nil).State)
	assert.Equal(t, saves, store.Saves(), "reading an active pause saves nothing")

	clock.Advance(time.Second)
	status := e.CheckCircuitBreaker(ctx, "swing_trade", nil)
	assert.Equal(t, BreakerNormal, status.State)
	assert.Zero(t, status.ConsecutiveLosses)
	assert.Equal(t, saves+1, store.Saves(), "expiry is persisted")

	again := e.CheckCircuitBreaker(ctx, "swing_trade", nil)
	assert.Equal(t, status.State, again.State)
	assert.Equal(t, saves+1, store.Saves(), "expiry is applied once")
}

func TestCheckCircuitBreaker_LossAfterExpiryStartsNewStreak(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	recordLosses(t, e, "swing_trade", 5)
	clock.Advance(25 * time.Hour)

	status := recordLosses(t, e, "swing_trade", 1)
	assert.Equal(t, 1, status.ConsecutiveLosses)
	assert.Equal(t, BreakerNormal, status.State)
}

func TestCheckCircuitBreaker_ReadDoesNotCreateEntries(t *testing.T) {
	e, _, store := newTestEngine(t)

	status := e.CheckCircuitBreaker(context.Background(), "never_traded", nil)
	assert.Equal(t, BreakerNormal, status.State)
	assert.Equal(t, 1.0, status.RiskMultiplier)
	assert.Empty(t, e.GetRiskSummary().CircuitBreakers)
	assert.Zero(t, store.Saves())
}

func TestCheckCircuitBreaker_UnknownResultIgnored(t *testing.T) {
	e, _, _ := newTestEngine(t)
	weird := TradeResult("SCRATCH")

	status := e.CheckCircuitBreaker(context.Background(), "swing_trade", &weird)
	assert.Equal(t, BreakerNormal, status.State)
	require.Len(t, status.Warnings, 1)
	assert.Contains(t, status.Warnings[0], "SCRATCH")
}

func TestCheckCircuitBreaker_StrategiesIndependent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	recordLosses(t, e, "swing_trade", 5)

	assert.Equal(t, BreakerPaused, e.CheckCircuitBreaker(context.Background(), "swing_trade", nil).State)
	assert.Equal(t, BreakerNormal, e.CheckCircuitBreaker(context.Background(), "scalper", nil).State)
	assert.Equal(t, BreakerNormal, e.CheckCircuitBreaker(context.Background(), "", nil).State)
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "NORMAL", BreakerNormal.String())
	assert.Equal(t, "REDUCED", BreakerReduced.String())
	assert.Equal(t, "PAUSED", BreakerPaused.String())
	assert.Equal(t, "UNKNOWN", BreakerState(9).String())
}
