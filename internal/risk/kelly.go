package risk

import (
	"fmt"
	"math"
)

const msgNoEdge = "No positive edge detected - Kelly sizing skipped"

// VolatilityQuartile buckets the current ATR against its own history
type VolatilityQuartile string

const (
	QuartileTop    VolatilityQuartile = "TOP"
	QuartileHigh   VolatilityQuartile = "HIGH"
	QuartileMedium VolatilityQuartile = "MEDIUM"
	QuartileLow    VolatilityQuartile = "LOW"
	QuartileNA     VolatilityQuartile = "N/A"
)

// Multiplier is the Kelly scale applied in this volatility regime
func (q VolatilityQuartile) Multiplier() float64 {
	switch q {
	case QuartileTop:
		return 0.25
	case QuartileHigh:
		return 0.5
	case QuartileMedium:
		return 0.75
	case QuartileLow:
		return 1.0
	default:
		return 0
	}
}

// KellyInputs are the trade statistics of a strategy. AvgLoss is a magnitude.
type KellyInputs struct {
	WinRate float64 `json:"win_rate"`
	AvgWin  float64 `json:"avg_win"`
	AvgLoss float64 `json:"avg_loss"`
}

// KellyEstimate is a volatility-adjusted, capped Kelly fraction. Percentile
// is -1 when the symbol has too few ATR samples to rank.
type KellyEstimate struct {
	Fraction    float64            `json:"fraction"`
	FullKelly   float64            `json:"full_kelly"`
	CappedKelly float64            `json:"capped_kelly"`
	Quartile    VolatilityQuartile `json:"quartile"`
	Multiplier  float64            `json:"multiplier"`
	Percentile  float64            `json:"percentile"`
	Samples     int                `json:"samples"`
	Warnings    []string           `json:"warnings"`
}

// KellyCriterion returns the full Kelly fraction w - (1-w)/(avgWin/avgLoss).
// It is negative when the strategy has no edge.
func KellyCriterion(winRate, avgWin, avgLoss float64) float64 {
	payoff := avgWin / avgLoss
	return winRate - (1-winRate)/payoff
}

// validate normalizes the inputs, returning a reason when they cannot be used
func (in *KellyInputs) validate() (warnings []string, reason string) {
	if !isFinite(in.WinRate) || in.WinRate < 0 || in.WinRate > 1 {
		return nil, fmt.Sprintf("Win rate must be within [0, 1], got %v", in.WinRate)
	}
	if !isFinite(in.AvgWin) || in.AvgWin <= 0 {
		return nil, fmt.Sprintf("Average win must be positive, got %v", in.AvgWin)
	}
	if !isFinite(in.AvgLoss) || in.AvgLoss == 0 {
		return nil, fmt.Sprintf("Average loss must be non-zero, got %v", in.AvgLoss)
	}
	if in.AvgLoss < 0 {
		in.AvgLoss = math.Abs(in.AvgLoss)
		warnings = append(warnings, "Average loss given as negative - using its magnitude")
	}
	return warnings, ""
}

// classifyVolatility ranks atr within history using the midpoint rule for ties.
// history is expected to already contain atr.
func classifyVolatility(history []float64, atr float64, minSamples int) (VolatilityQuartile, float64) {
	if len(history) < minSamples || len(history) == 0 {
		return QuartileMedium, -1
	}

	var below, equal int
	for _, v := range history {
		switch {
		case v < atr:
			below++
		case v == atr:
			equal++
		}
	}
	percentile := 100 * (float64(below) + 0.5*float64(equal)) / float64(len(history))

	switch {
	case percentile > 75:
		return QuartileTop, percentile
	case percentile > 50:
		return QuartileHigh, percentile
	case percentile >= 25:
		return QuartileMedium, percentile
	default:
		return QuartileLow, percentile
	}
}

// atrHistory is a bounded, oldest-first window of ATR samples
type atrHistory struct {
	values []float64
	limit  int
}

func newATRHistory(limit int) *atrHistory {
	return &atrHistory{values: make([]float64, 0, limit), limit: limit}
}

func (h *atrHistory) push(v float64) {
	if len(h.values) >= h.limit {
		n := copy(h.values, h.values[len(h.values)-h.limit+1:])
		h.values = h.values[:n]
	}
	h.values = append(h.values, v)
}

func (h *atrHistory) snapshot() []float64 {
	out := make([]float64, len(h.values))
	copy(out, h.values)
	return out
}
