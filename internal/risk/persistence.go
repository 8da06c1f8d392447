package risk

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-risk-engine/internal/state"
)

// LoadState replaces in-memory state with the store's snapshot. A missing
// snapshot leaves the engine empty. On error the current state is kept.
// Entries that cannot be trusted are dropped and returned as warnings.
func (e *Engine) LoadState(ctx context.Context) ([]string, error) {
	res, err := e.store.Load(ctx)
	if err != nil {
		monitoring.RecordPersistenceFailure("load")
		e.logger.LogError("load state", err)
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	warnings := append([]string{}, res.Warnings...)
	if !res.Found {
		e.logger.Info("No saved risk state found - starting fresh")
		return warnings, nil
	}
	warnings = append(warnings, e.applySnapshotLocked(res.Snapshot)...)
	for _, w := range warnings {
		e.logger.LogWarning("load state", "%s", w)
	}

	now := e.clock()
	expired := false
	for strategy := range e.streaks {
		if _, changed := e.evaluateBreakerLocked(strategy, nil, now); changed {
			expired = true
		}
	}
	if expired {
		warnings = append(warnings, e.persistLocked(ctx)...)
	}
	e.publishHeatLocked()

	e.logger.Info("Loaded risk state: %d positions, %d strategies, %d ATR series (saved %s)",
		len(e.positions), len(e.streaks), len(e.atr), res.Snapshot.LastUpdated.Format(time.RFC3339))
	return warnings, nil
}

// SaveState writes the current state to the store
func (e *Engine) SaveState(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked(ctx)
}

// persistLocked saves after a mutation. A failure never rolls back memory;
// it is logged, counted and returned as a warning.
func (e *Engine) persistLocked(ctx context.Context) []string {
	if err := e.saveLocked(ctx); err != nil {
		return []string{fmt.Sprintf("State not persisted: %v", err)}
	}
	return nil
}

func (e *Engine) saveLocked(ctx context.Context) error {
	now := e.clock()
	err := e.store.Save(ctx, e.snapshotLocked(now))
	if e.health != nil {
		e.health.RecordSave(now, err)
	}
	if err != nil {
		e.lastPersistErr = err
		monitoring.RecordPersistenceFailure("save")
		e.logger.LogError("save state", err)
		return err
	}
	e.lastPersistErr = nil
	return nil
}

func (e *Engine) snapshotLocked(now time.Time) *state.Snapshot {
	snap := state.NewSnapshot()
	snap.LastUpdated = now

	for symbol, p := range e.positions {
		snap.OpenPositions[symbol] = &state.PositionSnapshot{
			ID:         p.ID,
			Symbol:     p.Symbol,
			Side:       string(p.Side),
			Size:       p.Size,
			EntryPrice: p.EntryPrice,
			StopLoss:   p.StopLoss,
			Sector:     p.Sector,
			Strategy:   p.Strategy,
			RiskAmount: p.RiskAmount,
			OpenedAt:   p.OpenedAt,
		}
	}
	for strategy, s := range e.streaks {
		if len(s.losses) > 0 {
			snap.LossStreaks[strategy] = append([]time.Time(nil), s.losses...)
		}
		if s.pausedUntil != nil {
			snap.PausedStrategies[strategy] = *s.pausedUntil
		}
	}
	for symbol, h := range e.atr {
		snap.ATRHistory[symbol] = h.snapshot()
	}
	return snap
}

func (e *Engine) applySnapshotLocked(snap *state.Snapshot) []string {
	var warnings []string
	positions := make(map[string]*Position, len(snap.OpenPositions))
	streaks := make(map[string]*lossStreak)
	atr := make(map[string]*atrHistory, len(snap.ATRHistory))

	for key, ps := range snap.OpenPositions {
		pos, reason := positionFromSnapshot(key, ps)
		if reason != "" {
			warnings = append(warnings, fmt.Sprintf("dropped position %s: %s", key, reason))
			continue
		}
		positions[key] = pos
	}

	for strategy, losses := range snap.LossStreaks {
		if len(losses) == 0 {
			continue
		}
		sorted := make([]time.Time, 0, len(losses))
		for _, t := range losses {
			sorted = append(sorted, t.UTC())
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
		streaks[strategy] = &lossStreak{losses: sorted}
	}
	for strategy, until := range snap.PausedStrategies {
		s, ok := streaks[strategy]
		if !ok {
			s = &lossStreak{}
			streaks[strategy] = s
		}
		u := until.UTC()
		s.pausedUntil = &u
	}

	for symbol, values := range snap.ATRHistory {
		h := newATRHistory(e.config.ATRHistoryLimit)
		dropped := 0
		for _, v := range values {
			if !usableATR(v) {
				dropped++
				continue
			}
			h.push(v)
		}
		if dropped > 0 {
			warnings = append(warnings, fmt.Sprintf("dropped %d invalid ATR samples for %s", dropped, symbol))
		}
		if len(h.values) > 0 {
			atr[symbol] = h
		}
	}

	e.positions = positions
	e.streaks = streaks
	e.atr = atr
	return warnings
}

func positionFromSnapshot(key string, ps *state.PositionSnapshot) (*Position, string) {
	if ps == nil {
		return nil, "empty entry"
	}
	symbol := ps.Symbol
	if symbol == "" {
		symbol = key
	}
	if symbol != key {
		return nil, fmt.Sprintf("symbol %q does not match key", ps.Symbol)
	}
	if reason := positionFieldsProblem(ps.Size, ps.EntryPrice, ps.StopLoss); reason != "" {
		return nil, reason
	}
	if !isFinite(ps.RiskAmount) || ps.RiskAmount < 0 {
		return nil, fmt.Sprintf("invalid risk amount %v", ps.RiskAmount)
	}

	side := Side(ps.Side)
	if side != SideLong && side != SideShort {
		side = sideFromStop(ps.EntryPrice, ps.StopLoss)
	}
	return &Position{
		ID:         ps.ID,
		Symbol:     symbol,
		Side:       side,
		Size:       ps.Size,
		EntryPrice: ps.EntryPrice,
		StopLoss:   ps.StopLoss,
		Sector:     ps.Sector,
		Strategy:   normalizeStrategy(ps.Strategy),
		RiskAmount: ps.RiskAmount,
		OpenedAt:   ps.OpenedAt.UTC(),
	}, ""
}
