package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKellyCriterion(t *testing.T) {
	assert.InDelta(t, 0.25, KellyCriterion(0.55, 150, 100), 1e-12)
	assert.InDelta(t, 0.0, KellyCriterion(0.5, 100, 100), 1e-12)
	assert.Less(t, KellyCriterion(0.3, 100, 100), 0.0)
}

func TestKellyCriterion_MonotonicInWinRate(t *testing.T) {
	prev := KellyCriterion(0, 150, 100)
	for w := 0.05; w <= 1.0; w += 0.05 {
		k := KellyCriterion(w, 150, 100)
		assert.Greater(t, k, prev, "win rate %.2f", w)
		prev = k
	}
}

func TestGetKellyFraction_ReferenceStats(t *testing.T) {
	e, _, _ := newTestEngine(t)

	est := e.GetKellyFraction(context.Background(), KellyInputs{WinRate: 0.55, AvgWin: 150, AvgLoss: 100}, 1200, "BTCUSDT")

	assert.InDelta(t, 0.25, est.FullKelly, 1e-12)
	assert.InDelta(t, 0.25, est.CappedKelly, 1e-12)
	assert.Equal(t, QuartileMedium, est.Quartile)
	assert.Equal(t, -1.0, est.Percentile)
	assert.InDelta(t, 0.1875, est.Fraction, 1e-12)
	assert.Equal(t, []float64{1200}, e.ATRHistory("BTCUSDT"))
}

func TestGetKellyFraction_CapNeverExceeded(t *testing.T) {
	e, _, _ := newTestEngine(t)

	for _, w := range []float64{0.6, 0.75, 0.9, 1.0} {
		est := e.GetKellyFraction(context.Background(), KellyInputs{WinRate: w, AvgWin: 300, AvgLoss: 100}, 50, "ETHUSDT")
		assert.LessOrEqual(t, est.CappedKelly, 0.25)
		assert.LessOrEqual(t, est.Fraction, 0.25)
		assert.Greater(t, est.FullKelly, 0.25)
	}
}

func TestGetKellyFraction_NoEdge(t *testing.T) {
	e, _, store := newTestEngine(t)

	est := e.GetKellyFraction(context.Background(), KellyInputs{WinRate: 0.4, AvgWin: 100, AvgLoss: 100}, 1200, "BTCUSDT")

	assert.Zero(t, est.Fraction)
	assert.Equal(t, QuartileNA, est.Quartile)
	assert.Equal(t, []string{msgNoEdge}, est.Warnings)
	assert.Empty(t, e.ATRHistory("BTCUSDT"))
	assert.Zero(t, store.Saves())
}

func TestGetKellyFraction_InvalidInputs(t *testing.T) {
	tests := []struct {
		name string
		in   KellyInputs
		atr  float64
	}{
		{"win rate above one", KellyInputs{WinRate: 1.2, AvgWin: 100, AvgLoss: 100}, 10},
		{"zero average win", KellyInputs{WinRate: 0.6, AvgWin: 0, AvgLoss: 100}, 10},
		{"zero average loss", KellyInputs{WinRate: 0.6, AvgWin: 100, AvgLoss: 0}, 10},
		{"zero ATR", KellyInputs{WinRate: 0.6, AvgWin: 100, AvgLoss: 100}, 0},
	}
	e, _, _ := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := e.GetKellyFraction(context.Background(), tt.in, tt.atr, "BTCUSDT")
			assert.Zero(t, est.Fraction)
			assert.Equal(t, QuartileNA, est.Quartile)
			assert.Len(t, est.Warnings, 1)
		})
	}
}

func TestGetKellyFraction_NegativeAvgLossUsesMagnitude(t *testing.T) {
	e, _, _ := newTestEngine(t)
	est := e.GetKellyFraction(context.Background(), KellyInputs{WinRate: 0.55, AvgWin: 150, AvgLoss: -100}, 10, "BTCUSDT")
	assert.InDelta(t, 0.25, est.FullKelly, 1e-12)
	require.Len(t, est.Warnings, 1)
	assert.Contains(t, est.Warnings[0], "magnitude")
}

func TestGetKellyFraction_VolatilityQuartiles(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	stats := KellyInputs{WinRate: 0.55, AvgWin: 150, AvgLoss: 100}

	for i := 1; i <= 10; i++ {
		e.GetKellyFraction(ctx, stats, float64(i*100), "BTCUSDT")
	}

	high := e.GetKellyFraction(ctx, stats, 1100, "BTCUSDT")
	assert.Equal(t, QuartileTop, high.Quartile)
	assert.InDelta(t, 100*10.5/11, high.Percentile, 1e-9)
	assert.InDelta(t, 0.0625, high.Fraction, 1e-12)

	low := e.GetKellyFraction(ctx, stats, 50, "BTCUSDT")
	assert.Equal(t, QuartileLow, low.Quartile)
	assert.InDelta(t, 0.25, low.Fraction, 1e-12)
	assert.Equal(t, 12, low.Samples)
}

func TestClassifyVolatility(t *testing.T) {
	tests := []struct {
		name    string
		history []float64
		atr     float64
		want    VolatilityQuartile
		pct     float64
	}{
		{"too few samples", []float64{1, 2, 3, 4}, 4, QuartileMedium, -1},
		{"all equal is the median", []float64{5, 5, 5, 5, 5}, 5, QuartileMedium, 50},
		{"highest of five", []float64{1, 2, 3, 4, 5}, 5, QuartileTop, 90},
		{"second highest", []float64{1, 2, 3, 4, 5}, 4, QuartileHigh, 70},
		{"middle", []float64{1, 2, 3, 4, 5}, 3, QuartileMedium, 50},
		{"second lowest", []float64{1, 2, 3, 4, 5}, 2, QuartileMedium, 30},
		{"lowest", []float64{1, 2, 3, 4, 5}, 1, QuartileLow, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, pct := classifyVolatility(tt.history, tt.atr, 5)
			assert.Equal(t, tt.want, q)
			assert.InDelta(t, tt.pct, pct, 1e-9)
		})
	}
}

func TestATRHistory_BoundedOldestFirst(t *testing.T) {
	h := newATRHistory(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		h.push(v)
	}
	assert.Equal(t, []float64{3, 4, 5}, h.snapshot())
}

func TestSeedATRHistory(t *testing.T) {
	e, _, store := newTestEngine(t)
	ctx := context.Background()

	kept, warnings := e.SeedATRHistory(ctx, "ETHUSDT", []float64{10, 0, 20, -1, 30, 40, 50})
	assert.Equal(t, 5, kept)
	assert.Equal(t, []string{"Skipped 2 unusable ATR samples"}, warnings)
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, e.ATRHistory("ETHUSDT"))
	assert.Equal(t, 1, store.Saves())

	est := e.GetKellyFraction(ctx, KellyInputs{WinRate: 0.55, AvgWin: 150, AvgLoss: 100}, 60, "ETHUSDT")
	assert.Equal(t, QuartileTop, est.Quartile)
	assert.Equal(t, 6, est.Samples)

	kept, warnings = e.SeedATRHistory(ctx, "", []float64{1})
	assert.Zero(t, kept)
	require.Len(t, warnings, 1)
}
