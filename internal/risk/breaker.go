package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/monitoring"
)

// lossStreak is the breaker memory of one strategy
type lossStreak struct {
	losses      []time.Time
	pausedUntil *time.Time
}

// CheckCircuitBreaker reports the breaker of strategy. With a non-nil result
// the trade outcome is applied first: a loss extends the streak and a win
// clears it. A nil result only reads state, except that an expired pause
// is cleared and saved.
func (e *Engine) CheckCircuitBreaker(ctx context.Context, strategy string, result *TradeResult) CircuitBreakerStatus {
	strategy = normalizeStrategy(strategy)

	e.mu.Lock()
	defer e.mu.Unlock()

	var warnings []string
	if result != nil && *result != TradeWin && *result != TradeLoss {
		warnings = append(warnings, fmt.Sprintf("Unknown trade result %q ignored", *result))
		result = nil
	}

	status, changed := e.evaluateBreakerLocked(strategy, result, e.clock())
	if changed {
		warnings = append(warnings, e.persistLocked(ctx)...)
	}
	status.Warnings = append(status.Warnings, warnings...)
	return status
}

// evaluateBreakerLocked expires a lapsed pause, applies result and returns the
// strategy's status along with whether breaker state changed
func (e *Engine) evaluateBreakerLocked(strategy string, result *TradeResult, now time.Time) (CircuitBreakerStatus, bool) {
	streak := e.streaks[strategy]
	changed := false

	if streak != nil && streak.pausedUntil != nil && !now.Before(*streak.pausedUntil) {
		e.logger.Info("Circuit breaker pause for %s expired at %s - resuming at full size",
			strategy, streak.pausedUntil.Format(time.RFC3339))
		streak.losses = nil
		streak.pausedUntil = nil
		changed = true
	}

	if result != nil {
		if streak == nil {
			streak = &lossStreak{}
			e.streaks[strategy] = streak
			changed = true
		}
		switch *result {
		case TradeWin:
			if len(streak.losses) > 0 || streak.pausedUntil != nil {
				e.logger.Info("Win recorded for %s - breaker reset after %d losses", strategy, len(streak.losses))
				changed = true
			}
			streak.losses = nil
			streak.pausedUntil = nil
		case TradeLoss:
			streak.losses = append(streak.losses, now)
			changed = true
		}
	}

	// A streak at the pause threshold without a deadline arms one now. This
	// also covers snapshots that carry losses but no pause entry.
	if streak != nil && streak.pausedUntil == nil && len(streak.losses) >= e.config.PausedThreshold {
		until := now.Add(e.config.PauseDuration)
		streak.pausedUntil = &until
		changed = true
		e.logger.Warning("Circuit breaker PAUSED %s after %d consecutive losses until %s",
			strategy, len(streak.losses), until.Format(time.RFC3339))
	}

	status := e.breakerStatus(strategy, streak, now)
	if changed || result != nil {
		monitoring.UpdateCircuitBreaker(strategy, int(status.State), status.ConsecutiveLosses)
		e.updatePausedCountLocked(now)
	}
	return status, changed
}

// breakerStatus derives a status without mutating the streak. A lapsed pause
// reads as NORMAL, which is what the next mutating check will store.
func (e *Engine) breakerStatus(strategy string, streak *lossStreak, now time.Time) CircuitBreakerStatus {
	status := CircuitBreakerStatus{
		Strategy:       strategy,
		State:          BreakerNormal,
		RiskMultiplier: 1.0,
	}
	if streak == nil {
		return status
	}
	if streak.pausedUntil != nil && !now.Before(*streak.pausedUntil) {
		return status
	}

	status.ConsecutiveLosses = len(streak.losses)
	if n := len(streak.losses); n > 0 {
		last := streak.losses[n-1]
		status.LastLoss = &last
	}

	switch {
	case streak.pausedUntil != nil:
		until := *streak.pausedUntil
		status.State = BreakerPaused
		status.Paused = true
		status.PausedUntil = &until
		status.RiskMultiplier = 0
	case status.ConsecutiveLosses >= e.config.ReducedThreshold:
		status.State = BreakerReduced
		status.RiskMultiplier = e.config.ReducedRiskScale
	}
	return status
}

func (e *Engine) updatePausedCountLocked(now time.Time) {
	if e.health == nil {
		return
	}
	paused := 0
	for _, s := range e.streaks {
		if s.pausedUntil != nil && now.Before(*s.pausedUntil) {
			paused++
		}
	}
	e.health.SetPausedStrategies(paused)
}
