package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
)

func TestATRPositionSize(t *testing.T) {
	tests := []struct {
		name         string
		req          ATRSizingRequest
		wantMethod   SizingMethod
		wantSize     float64
		wantRisk     float64
		wantWarnings int
	}{
		{
			name:       "reference trade",
			req:        ATRSizingRequest{Equity: 5433.87, ATR: 1200, RiskPct: 0.02, ATRMultiplier: 2},
			wantMethod: MethodATR,
			wantSize:   108.6774 / 2400,
			wantRisk:   108.6774,
		},
		{
			name:         "capped size recomputes risk",
			req:          ATRSizingRequest{Equity: 5433.87, ATR: 1200, RiskPct: 0.02, ATRMultiplier: 2, MaxPositionSize: 0.01},
			wantMethod:   MethodATR,
			wantSize:     0.01,
			wantRisk:     24,
			wantWarnings: 1,
		},
		{
			name:         "zero ATR",
			req:          ATRSizingRequest{Equity: 10000, ATR: 0, RiskPct: 0.02, ATRMultiplier: 2},
			wantMethod:   MethodATRInvalid,
			wantWarnings: 1,
		},
		{
			name:         "ATR below threshold",
			req:          ATRSizingRequest{Equity: 10000, ATR: 1e-13, RiskPct: 0.02, ATRMultiplier: 2},
			wantMethod:   MethodATRInvalid,
			wantWarnings: 1,
		},
		{
			name:         "NaN ATR",
			req:          ATRSizingRequest{Equity: 10000, ATR: math.NaN(), RiskPct: 0.02, ATRMultiplier: 2},
			wantMethod:   MethodATRInvalid,
			wantWarnings: 1,
		},
		{
			name:         "negative equity",
			req:          ATRSizingRequest{Equity: -1, ATR: 10, RiskPct: 0.02, ATRMultiplier: 2},
			wantMethod:   MethodATRInvalid,
			wantWarnings: 1,
		},
		{
			name:         "risk pct above one",
			req:          ATRSizingRequest{Equity: 10000, ATR: 10, RiskPct: 1.5, ATRMultiplier: 2},
			wantMethod:   MethodATRInvalid,
			wantWarnings: 1,
		},
		{
			name:         "zero multiplier",
			req:          ATRSizingRequest{Equity: 10000, ATR: 10, RiskPct: 0.02},
			wantMethod:   MethodATRInvalid,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ATRPositionSize(tt.req)
			assert.Equal(t, tt.wantMethod, result.Method)
			assert.InDelta(t, tt.wantSize, result.Size, 1e-9)
			assert.InDelta(t, tt.wantRisk, result.RiskAmount, 1e-9)
			assert.Len(t, result.Warnings, tt.wantWarnings)
			assert.GreaterOrEqual(t, result.Size, 0.0)
		})
	}
}

func TestATRPositionSize_LosesExactlyRiskAtStop(t *testing.T) {
	for _, atr := range []float64{0.0004, 0.5, 37, 1200, 58000} {
		for _, pct := range []float64{0.001, 0.01, 0.02, 0.1} {
			req := ATRSizingRequest{Equity: 25000, ATR: atr, RiskPct: pct, ATRMultiplier: 1.5}
			result := ATRPositionSize(req)
			require.Equal(t, MethodATR, result.Method)
			assert.InEpsilon(t, req.Equity*pct, result.Size*result.StopDistance, 1e-9)
		}
	}
}

func TestCalculateATRPositionSize_FillsDefaults(t *testing.T) {
	cfg := config.DefaultRiskConfig()
	cfg.MaxPositionSize = 0.03
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	result := e.CalculateATRPositionSize(ATRSizingRequest{Equity: 5433.87, ATR: 1200})
	assert.Equal(t, MethodATR, result.Method)
	assert.InDelta(t, 0.02, result.RiskPct, 1e-12)
	assert.InDelta(t, 0.03, result.Size, 1e-12)
	assert.InDelta(t, 72.0, result.RiskAmount, 1e-9)
	assert.Contains(t, result.Warnings[0], "capped")
	assert.Empty(t, e.ATRHistory("BTCUSDT"), "plain sizing does not touch history")
}

func TestSizingMethod_Rejected(t *testing.T) {
	assert.False(t, MethodATR.Rejected())
	assert.False(t, MethodATRKelly.Rejected())
	assert.True(t, MethodATRInvalid.Rejected())
	assert.True(t, MethodCircuitBreakerPaused.Rejected())
	assert.True(t, MethodPortfolioHeatExceeded.Rejected())
}
