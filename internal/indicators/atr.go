package indicators

import (
	"errors"
	"fmt"
	"math"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/data"
)

// DefaultATRPeriod is the conventional Wilder lookback
const DefaultATRPeriod = 14

// ATR represents the Average True Range technical indicator.
// ATR measures volatility as the smoothed true range of each bar.
type ATR struct {
	period    int
	lastValue float64
	lastClose float64
	count     int
	seed      float64
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	return &ATR{period: period}
}

// Calculate runs the indicator over data from scratch and returns the
// final ATR. The first candle only provides the previous close.
func (a *ATR) Calculate(candles []data.Candle) (float64, error) {
	if len(candles) < a.GetRequiredPeriods() {
		return 0, fmt.Errorf("insufficient data points for ATR(%d): need %d, got %d",
			a.period, a.GetRequiredPeriods(), len(candles))
	}

	a.ResetState()
	a.lastClose = candles[0].Close
	for _, c := range candles[1:] {
		a.Update(c)
	}
	if a.count < a.period {
		return 0, errors.New("not enough true ranges for ATR")
	}
	return a.lastValue, nil
}

// Update folds one more candle into the running ATR and returns the
// current value, which stays zero until period true ranges are seen.
func (a *ATR) Update(c data.Candle) float64 {
	tr := trueRange(c, a.lastClose)
	a.lastClose = c.Close
	a.count++

	switch {
	case a.count < a.period:
		a.seed += tr
	case a.count == a.period:
		a.seed += tr
		a.lastValue = a.seed / float64(a.period)
	default:
		// Wilder smoothing
		a.lastValue = (a.lastValue*float64(a.period-1) + tr) / float64(a.period)
	}
	return a.lastValue
}

// trueRange = max(High-Low, |High-PrevClose|, |Low-PrevClose|)
func trueRange(c data.Candle, prevClose float64) float64 {
	hl := c.High - c.Low
	hc := math.Abs(c.High - prevClose)
	lc := math.Abs(c.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// GetName returns the indicator name
func (a *ATR) GetName() string {
	return "ATR"
}

// GetRequiredPeriods returns the minimum number of candles needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period + 1
}

// GetLastValue returns the last calculated ATR value
func (a *ATR) GetLastValue() float64 {
	return a.lastValue
}

// GetPeriod returns the lookback period
func (a *ATR) GetPeriod() int {
	return a.period
}

// ResetState clears the running state
func (a *ATR) ResetState() {
	a.lastValue = 0
	a.lastClose = 0
	a.count = 0
	a.seed = 0
}

// ATRSeries returns the ATR after each candle once the indicator is
// warmed up, oldest first. Useful for seeding volatility history.
func ATRSeries(candles []data.Candle, period int) ([]float64, error) {
	a := NewATR(period)
	if len(candles) < a.GetRequiredPeriods() {
		return nil, fmt.Errorf("insufficient data points for ATR(%d): need %d, got %d",
			a.period, a.GetRequiredPeriods(), len(candles))
	}

	a.lastClose = candles[0].Close
	series := make([]float64, 0, len(candles)-a.period)
	for _, c := range candles[1:] {
		v := a.Update(c)
		if a.count >= a.period {
			series = append(series, v)
		}
	}
	return series, nil
}
