package risk

import (
	"sort"
)

// GetRiskSummary returns a read-only view of equity, heat, open positions,
// breakers and ATR coverage
func (e *Engine) GetRiskSummary() RiskSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	summary := RiskSummary{
		GeneratedAt:     now,
		Equity:          e.equity,
		Heat:            e.heatLocked(HeatRequest{}),
		Positions:       e.openPositionsLocked(),
		CircuitBreakers: make([]CircuitBreakerStatus, 0, len(e.streaks)),
		ATRSamples:      make(map[string]int, len(e.atr)),
		Config:          e.config,
	}

	strategies := make([]string, 0, len(e.streaks))
	for s := range e.streaks {
		strategies = append(strategies, s)
	}
	sort.Strings(strategies)
	for _, s := range strategies {
		summary.CircuitBreakers = append(summary.CircuitBreakers, e.breakerStatus(s, e.streaks[s], now))
	}

	for symbol, h := range e.atr {
		summary.ATRSamples[symbol] = len(h.values)
	}
	if e.lastPersistErr != nil {
		summary.LastPersistenceError = e.lastPersistErr.Error()
	}
	return summary
}
