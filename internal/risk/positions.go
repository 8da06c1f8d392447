package risk

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	riskerrors "github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/internal/monitoring"
)

// RegisterPosition records a position the caller opened. Side follows the
// stop: below entry is long, above entry is short. An open position on the
// same symbol is replaced and returned in the result.
func (e *Engine) RegisterPosition(ctx context.Context, req PositionRequest) (RegisterResult, error) {
	if err := validatePositionRequest(req); err != nil {
		return RegisterResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos := &Position{
		ID:         e.newID(),
		Symbol:     req.Symbol,
		Side:       sideFromStop(req.EntryPrice, req.StopLoss),
		Size:       req.Size,
		EntryPrice: req.EntryPrice,
		StopLoss:   req.StopLoss,
		Sector:     req.Sector,
		Strategy:   normalizeStrategy(req.Strategy),
		RiskAmount: req.Size * math.Abs(req.EntryPrice-req.StopLoss),
		OpenedAt:   e.clock(),
	}

	result := RegisterResult{Position: *pos}
	if prev, ok := e.positions[req.Symbol]; ok {
		replaced := *prev
		result.Replaced = &replaced
		e.logger.Warning("Position %s already open (id %s) - replacing with new registration", req.Symbol, prev.ID)
	}
	e.positions[req.Symbol] = pos

	e.logger.Trade("Registered %s %s size=%.6f entry=%.4f stop=%.4f risk=$%.2f strategy=%s",
		pos.Side, pos.Symbol, pos.Size, pos.EntryPrice, pos.StopLoss, pos.RiskAmount, pos.Strategy)

	result.Warnings = e.persistLocked(ctx)
	e.publishHeatLocked()
	return result, nil
}

// ClosePosition removes the open position on symbol, computes its P&L at
// exitPrice and feeds the outcome to the strategy's circuit breaker. An empty
// strategy falls back to the one the position was registered under.
// Breakeven counts as a loss.
func (e *Engine) ClosePosition(ctx context.Context, symbol string, exitPrice float64, strategy string) (CloseSummary, error) {
	if !isFinite(exitPrice) || exitPrice <= 0 {
		return CloseSummary{}, riskerrors.NewInvalidInputError("engine", "close_position",
			fmt.Sprintf("exit price must be positive, got %v", exitPrice))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[symbol]
	if !ok {
		return CloseSummary{}, riskerrors.NewPositionNotFoundError("engine", "close_position", symbol)
	}
	if strategy == "" {
		strategy = pos.Strategy
	}
	now := e.clock()

	pnl, pnlPct := positionPnL(pos, exitPrice)
	outcome := TradeLoss
	if pnl > 0 {
		outcome = TradeWin
	}

	delete(e.positions, symbol)
	breaker, _ := e.evaluateBreakerLocked(strategy, &outcome, now)

	summary := CloseSummary{
		Symbol:       symbol,
		Strategy:     strategy,
		Side:         pos.Side,
		Size:         pos.Size,
		EntryPrice:   pos.EntryPrice,
		ExitPrice:    exitPrice,
		PnL:          pnl,
		PnLPercent:   pnlPct,
		Outcome:      outcome,
		HoldDuration: now.Sub(pos.OpenedAt),
		Breaker:      breaker,
	}

	e.logger.Trade("Closed %s %s at %.4f: pnl=$%.2f (%.2f%%) %s - breaker %s (%d losses)",
		pos.Side, symbol, exitPrice, pnl, pnlPct, outcome, breaker.State, breaker.ConsecutiveLosses)
	monitoring.RecordPositionClosed(strategy, string(outcome))

	summary.Warnings = e.persistLocked(ctx)
	e.publishHeatLocked()
	return summary, nil
}

// positionPnL computes realized P&L in decimal to avoid float drift on
// price differences
func positionPnL(pos *Position, exitPrice float64) (float64, float64) {
	entry := decimal.NewFromFloat(pos.EntryPrice)
	size := decimal.NewFromFloat(pos.Size)

	pnl := decimal.NewFromFloat(exitPrice).Sub(entry).Mul(size).Mul(decimal.NewFromInt(pos.Side.sign()))
	notional := entry.Mul(size)

	pct := decimal.Zero
	if !notional.IsZero() {
		pct = pnl.Div(notional).Mul(decimal.NewFromInt(100))
	}

	pnlFloat, _ := pnl.Round(8).Float64()
	pctFloat, _ := pct.Round(6).Float64()
	return pnlFloat, pctFloat
}

// OpenPositions returns the open positions sorted by symbol
func (e *Engine) OpenPositions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openPositionsLocked()
}

func (e *Engine) openPositionsLocked() []Position {
	out := make([]Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (e *Engine) publishHeatLocked() {
	if e.equity <= 0 {
		monitoring.UpdatePortfolioHeat(0, 0, len(e.positions))
		return
	}
	heat := e.heatLocked(HeatRequest{})
	monitoring.UpdatePortfolioHeat(heat.TotalHeat, heat.Utilization, len(e.positions))
}

func validatePositionRequest(req PositionRequest) error {
	reason := positionFieldsProblem(req.Size, req.EntryPrice, req.StopLoss)
	if req.Symbol == "" {
		reason = "symbol is required"
	}
	if reason != "" {
		return riskerrors.NewInvalidInputError("engine", "register_position", reason)
	}
	return nil
}

// positionFieldsProblem describes the first broken Position invariant, or
// returns "" when size, entry and stop are usable
func positionFieldsProblem(size, entry, stop float64) string {
	switch {
	case !isFinite(size) || size <= 0:
		return fmt.Sprintf("size must be positive, got %v", size)
	case !isFinite(entry) || entry <= 0:
		return fmt.Sprintf("entry price must be positive, got %v", entry)
	case !isFinite(stop) || stop <= 0:
		return fmt.Sprintf("stop loss must be positive, got %v", stop)
	case stop == entry:
		return fmt.Sprintf("stop loss must differ from entry price %v", entry)
	}
	return ""
}
