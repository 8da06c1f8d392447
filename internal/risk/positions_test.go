package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	riskerrors "github.com/ducminhle1904/crypto-risk-engine/internal/errors"
)

func TestRegisterPosition(t *testing.T) {
	e, _, store := newTestEngine(t, WithIDGenerator(func() string { return "pos-1" }))

	res, err := e.RegisterPosition(context.Background(), PositionRequest{
		Symbol:     "BTCUSDT",
		Size:       0.045,
		EntryPrice: 64000,
		StopLoss:   61600,
		Sector:     "Layer1",
		Strategy:   "swing_trade",
	})
	require.NoError(t, err)

	pos := res.Position
	assert.Equal(t, "pos-1", pos.ID)
	assert.Equal(t, SideLong, pos.Side)
	assert.InDelta(t, 108.0, pos.RiskAmount, 1e-9)
	assert.Equal(t, testStart, pos.OpenedAt)
	assert.Nil(t, res.Replaced)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []Position{pos}, e.OpenPositions())
	assert.Equal(t, 1, store.Saves())
}

func TestRegisterPosition_ShortFromStopAboveEntry(t *testing.T) {
	e, _, _ := newTestEngine(t)

	res, err := e.RegisterPosition(context.Background(), PositionRequest{
		Symbol: "ETHUSDT", Size: 2, EntryPrice: 3000, StopLoss: 3150,
	})
	require.NoError(t, err)
	assert.Equal(t, SideShort, res.Position.Side)
	assert.InDelta(t, 300.0, res.Position.RiskAmount, 1e-9)
	assert.Equal(t, DefaultStrategy, res.Position.Strategy)
	assert.Greater(t, res.Position.Size, 0.0)
}

func TestRegisterPosition_ReplacesSameSymbol(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.RegisterPosition(ctx, PositionRequest{Symbol: "ETHUSDT", Size: 1, EntryPrice: 3000, StopLoss: 2900})
	require.NoError(t, err)
	second, err := e.RegisterPosition(ctx, PositionRequest{Symbol: "ETHUSDT", Size: 2, EntryPrice: 3100, StopLoss: 3000})
	require.NoError(t, err)

	require.NotNil(t, second.Replaced)
	assert.Equal(t, first.Position.ID, second.Replaced.ID)
	assert.NotEqual(t, first.Position.ID, second.Position.ID)

	positions := e.OpenPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, 2.0, positions[0].Size)
}

func TestRegisterPosition_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  PositionRequest
	}{
		{"missing symbol", PositionRequest{Size: 1, EntryPrice: 100, StopLoss: 90}},
		{"zero size", PositionRequest{Symbol: "X", Size: 0, EntryPrice: 100, StopLoss: 90}},
		{"negative entry", PositionRequest{Symbol: "X", Size: 1, EntryPrice: -100, StopLoss: 90}},
		{"zero stop", PositionRequest{Symbol: "X", Size: 1, EntryPrice: 100}},
		{"stop at entry", PositionRequest{Symbol: "X", Size: 1, EntryPrice: 100, StopLoss: 100}},
	}
	e, _, store := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.RegisterPosition(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, riskerrors.IsInvalidInput(err))
		})
	}
	assert.Empty(t, e.OpenPositions())
	assert.Zero(t, store.Saves())
}

func TestClosePosition(t *testing.T) {
	tests := []struct {
		name    string
		req     PositionRequest
		exit    float64
		pnl     float64
		pct     float64
		outcome TradeResult
	}{
		{"long win", PositionRequest{Symbol: "BTCUSDT", Size: 2, EntryPrice: 100, StopLoss: 95}, 110, 20, 10, TradeWin},
		{"long loss", PositionRequest{Symbol: "BTCUSDT", Size: 2, EntryPrice: 100, StopLoss: 95}, 95, -10, -5, TradeLoss},
		{"short win", PositionRequest{Symbol: "BTCUSDT", Size: 2, EntryPrice: 100, StopLoss: 105}, 90, 20, 10, TradeWin},
		{"short loss", PositionRequest{Symbol: "BTCUSDT", Size: 2, EntryPrice: 100, StopLoss: 105}, 105, -10, -5, TradeLoss},
		{"breakeven counts as loss", PositionRequest{Symbol: "BTCUSDT", Size: 2, EntryPrice: 100, StopLoss: 95}, 100, 0, 0, TradeLoss},
		{"decimal prices", PositionRequest{Symbol: "BTCUSDT", Size: 0.3, EntryPrice: 0.1, StopLoss: 0.05}, 0.3, 0.06, 200, TradeWin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clock, _ := newTestEngine(t)
			ctx := context.Background()
			_, err := e.RegisterPosition(ctx, tt.req)
			require.NoError(t, err)
			clock.Advance(90 * time.Minute)

			summary, err := e.ClosePosition(ctx, "BTCUSDT", tt.exit, "")
			require.NoError(t, err)
			assert.Equal(t, tt.pnl, summary.PnL)
			assert.Equal(t, tt.pct, summary.PnLPercent)
			assert.Equal(t, tt.outcome, summary.Outcome)
			assert.Equal(t, 90*time.Minute, summary.HoldDuration)
			assert.Equal(t, DefaultStrategy, summary.Strategy)
			assert.Empty(t, e.OpenPositions())

			wantLosses := 0
			if tt.outcome == TradeLoss {
				wantLosses = 1
			}
			assert.Equal(t, wantLosses, summary.Breaker.ConsecutiveLosses)
		})
	}
}

func TestClosePosition_FeedsRegisteredStrategy(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.RegisterPosition(ctx, PositionRequest{
			Symbol: "SOLUSDT", Size: 10, EntryPrice: 150, StopLoss: 140, Strategy: "swing_trade",
		})
		require.NoError(t, err)
		_, err = e.ClosePosition(ctx, "SOLUSDT", 140, "")
		require.NoError(t, err)
	}

	status := e.CheckCircuitBreaker(ctx, "swing_trade", nil)
	assert.Equal(t, BreakerReduced, status.State)
	assert.Equal(t, 3, status.ConsecutiveLosses)
}

func TestClosePosition_Errors(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ClosePosition(ctx, "DOGEUSDT", 0.1, "")
	require.Error(t, err)
	assert.True(t, riskerrors.IsPositionNotFound(err))

	_, err = e.ClosePosition(ctx, "DOGEUSDT", 0, "")
	require.Error(t, err)
	assert.True(t, riskerrors.IsInvalidInput(err))
}

func TestClosePosition_PersistenceFailureStillCloses(t *testing.T) {
	store := &failingStore{}
	e, _, _ := newTestEngine(t, WithStore(store))
	ctx := context.Background()

	reg, err := e.RegisterPosition(ctx, PositionRequest{Symbol: "ETHUSDT", Size: 1, EntryPrice: 3000, StopLoss: 2900})
	require.NoError(t, err)
	require.Len(t, reg.Warnings, 1)
	assert.Contains(t, reg.Warnings[0], "State not persisted")

	summary, err := e.ClosePosition(ctx, "ETHUSDT", 3100, "")
	require.NoError(t, err)
	assert.Equal(t, TradeWin, summary.Outcome)
	assert.Len(t, summary.Warnings, 1)
	assert.Empty(t, e.OpenPositions())

	err = e.SaveState(ctx)
	require.Error(t, err)
	assert.True(t, riskerrors.IsPersistence(err))
}
