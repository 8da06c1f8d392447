package risk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
	riskerrors "github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/internal/logger"
	"github.com/ducminhle1904/crypto-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-risk-engine/internal/state"
)

// DefaultStrategy names trades that arrive without a strategy
const DefaultStrategy = "default"

// Engine sizes positions and gates new risk. Every public method takes the
// same lock, so a sizing decision always sees a consistent view of
// positions, streaks and ATR history.
type Engine struct {
	mu sync.Mutex

	config config.RiskConfig
	store  state.Store
	logger *logger.Logger
	health *monitoring.HealthChecker
	now    func() time.Time
	newID  func() string

	equity    float64
	positions map[string]*Position
	streaks   map[string]*lossStreak
	atr       map[string]*atrHistory

	lastPersistErr error
}

// Option configures an Engine
type Option func(*Engine)

// WithStore sets where snapshots are saved. Defaults to an in-memory store.
func WithStore(s state.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithLogger routes engine logs to l
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces the wall clock, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHealthChecker reports decisions and saves to h
func WithHealthChecker(h *monitoring.HealthChecker) Option {
	return func(e *Engine) { e.health = h }
}

// WithIDGenerator replaces the position ID source
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine validates cfg and returns an engine with empty state.
// Call LoadState to restore a previous snapshot.
func NewEngine(cfg config.RiskConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		config:    cfg,
		now:       time.Now,
		newID:     uuid.NewString,
		positions: make(map[string]*Position),
		streaks:   make(map[string]*lossStreak),
		atr:       make(map[string]*atrHistory),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = state.NewMemoryStore()
	}
	return e, nil
}

// Config returns the engine's risk configuration
func (e *Engine) Config() config.RiskConfig {
	return e.config
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// Equity returns the equity heat is measured against
func (e *Engine) Equity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.equity
}

// SetEquity updates the equity heat is measured against
func (e *Engine) SetEquity(equity float64) error {
	if !isFinite(equity) || equity <= 0 {
		return riskerrors.NewInvalidInputError("engine", "set_equity",
			fmt.Sprintf("equity must be positive, got %v", equity))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.equity = equity
	return nil
}

// CalculateATRPositionSize runs the plain ATR sizer with configured defaults
// filled in. It does not touch engine state.
func (e *Engine) CalculateATRPositionSize(req ATRSizingRequest) SizingResult {
	if req.RiskPct == 0 {
		req.RiskPct = e.config.DefaultRiskPct
	}
	if req.ATRMultiplier == 0 {
		req.ATRMultiplier = e.config.ATRMultiplier
	}
	if req.MaxPositionSize == 0 {
		req.MaxPositionSize = e.config.MaxPositionSize
	}
	return ATRPositionSize(req)
}

// GetKellyFraction estimates a volatility-adjusted Kelly fraction for symbol.
// When the strategy has an edge the ATR sample joins the symbol's history.
func (e *Engine) GetKellyFraction(ctx context.Context, in KellyInputs, atr float64, symbol string) KellyEstimate {
	e.mu.Lock()
	defer e.mu.Unlock()

	est, recorded := e.kellyLocked(in, atr, symbol, true)
	if recorded {
		est.Warnings = append(est.Warnings, e.persistLocked(ctx)...)
	}
	return est
}

func (e *Engine) kellyLocked(in KellyInputs, atr float64, symbol string, record bool) (KellyEstimate, bool) {
	est := KellyEstimate{Quartile: QuartileNA, Percentile: -1, Warnings: []string{}}

	warnings, reason := in.validate()
	est.Warnings = append(est.Warnings, warnings...)
	if reason != "" {
		est.Warnings = append(est.Warnings, reason)
		return est, false
	}
	if !usableATR(atr) {
		est.Warnings = append(est.Warnings, msgATRInvalid)
		return est, false
	}

	full := KellyCriterion(in.WinRate, in.AvgWin, in.AvgLoss)
	est.FullKelly = full
	if full <= 0 {
		est.Warnings = append(est.Warnings, msgNoEdge)
		return est, false
	}
	est.CappedKelly = math.Min(full, e.config.KellyMaxFraction)

	recorded := false
	if record && symbol != "" {
		e.recordATRLocked(symbol, atr)
		recorded = true
	}

	var history []float64
	if h, ok := e.atr[symbol]; ok {
		history = h.values
	}
	est.Samples = len(history)
	est.Quartile, est.Percentile = classifyVolatility(history, atr, e.config.ATRMinSamples)
	est.Multiplier = est.Quartile.Multiplier()
	est.Fraction = est.CappedKelly * est.Multiplier
	return est, recorded
}

func (e *Engine) recordATRLocked(symbol string, atr float64) {
	h, ok := e.atr[symbol]
	if !ok {
		h = newATRHistory(e.config.ATRHistoryLimit)
		e.atr[symbol] = h
	}
	h.push(atr)
}

// ATRHistory returns a copy of the ATR samples kept for symbol, oldest first
func (e *Engine) ATRHistory(symbol string) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.atr[symbol]; ok {
		return h.snapshot()
	}
	return nil
}

// SeedATRHistory appends historical ATR samples for symbol, oldest first,
// so volatility ranking works before enough live samples exist. Unusable
// values are skipped. Returns how many were kept.
func (e *Engine) SeedATRHistory(ctx context.Context, symbol string, values []float64) (int, []string) {
	if symbol == "" {
		return 0, []string{"symbol is required to seed ATR history"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var warnings []string
	kept := 0
	for _, v := range values {
		if !usableATR(v) {
			continue
		}
		e.recordATRLocked(symbol, v)
		kept++
	}
	if skipped := len(values) - kept; skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("Skipped %d unusable ATR samples", skipped))
	}
	if kept > 0 {
		warnings = append(warnings, e.persistLocked(ctx)...)
	}
	return kept, warnings
}

// SizingRequest is the input of the full sizing pipeline
type SizingRequest struct {
	Equity   float64
	Symbol   string
	ATR      float64
	Sector   string
	Strategy string
	UseKelly bool
	Kelly    *KellyInputs
}

// CalculatePositionSize runs the full pipeline: circuit breaker gate, ATR
// sizing with optional Kelly risk, then the portfolio heat gate. Equity
// passed here becomes the engine's current equity.
func (e *Engine) CalculatePositionSize(ctx context.Context, req SizingRequest) SizingResult {
	strategy := normalizeStrategy(req.Strategy)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	if isFinite(req.Equity) && req.Equity > 0 {
		e.equity = req.Equity
	}

	breaker, dirty := e.evaluateBreakerLocked(strategy, nil, now)
	if breaker.Paused {
		result := SizingResult{
			Method: MethodCircuitBreakerPaused,
			Warnings: []string{fmt.Sprintf(
				"Circuit breaker PAUSED for %s after %d consecutive losses until %s",
				strategy, breaker.ConsecutiveLosses, breaker.PausedUntil.Format(time.RFC3339))},
			Metadata: map[string]interface{}{
				"strategy":           strategy,
				"breaker_state":      breaker.State.String(),
				"consecutive_losses": breaker.ConsecutiveLosses,
				"paused_until":       *breaker.PausedUntil,
			},
		}
		if dirty {
			result.Warnings = append(result.Warnings, e.persistLocked(ctx)...)
		}
		e.finishDecisionLocked(req.Symbol, result, now)
		return result
	}

	warnings := []string{}
	riskPct := e.config.DefaultRiskPct * breaker.RiskMultiplier
	if breaker.State == BreakerReduced {
		warnings = append(warnings, fmt.Sprintf(
			"Circuit breaker REDUCED for %s after %d consecutive losses - risk scaled by %.2f",
			strategy, breaker.ConsecutiveLosses, breaker.RiskMultiplier))
	}
	metadata := map[string]interface{}{
		"strategy":       strategy,
		"breaker_state":  breaker.State.String(),
		"base_risk_pct":  e.config.DefaultRiskPct,
		"breaker_factor": breaker.RiskMultiplier,
	}

	if usableATR(req.ATR) && req.Symbol != "" {
		e.recordATRLocked(req.Symbol, req.ATR)
		dirty = true
	}

	method := MethodATR
	if req.UseKelly {
		if req.Kelly == nil {
			warnings = append(warnings, "Kelly sizing requested without trade statistics - using base risk")
		} else {
			est, _ := e.kellyLocked(*req.Kelly, req.ATR, req.Symbol, false)
			warnings = append(warnings, est.Warnings...)
			metadata["kelly_fraction"] = est.Fraction
			metadata["full_kelly"] = est.FullKelly
			metadata["volatility_quartile"] = string(est.Quartile)
			metadata["atr_percentile"] = est.Percentile
			if est.Fraction > 0 {
				// Kelly replaces the breaker-adjusted pct; the breaker only gates
				riskPct = est.Fraction
				method = MethodATRKelly
			}
		}
	}

	result := ATRPositionSize(ATRSizingRequest{
		Equity:          req.Equity,
		ATR:             req.ATR,
		RiskPct:         riskPct,
		ATRMultiplier:   e.config.ATRMultiplier,
		MaxPositionSize: e.config.MaxPositionSize,
	})
	result.Warnings = append(warnings, result.Warnings...)
	for k, v := range metadata {
		result.Metadata[k] = v
	}

	if result.Method != MethodATRInvalid {
		result.Method = method
		heat := e.heatLocked(HeatRequest{
			NewPositionRisk: result.RiskAmount / req.Equity,
			Symbol:          req.Symbol,
			Sector:          req.Sector,
		})
		result.Metadata["portfolio_heat"] = heat.TotalHeat
		result.Metadata["projected_heat"] = heat.ProjectedHeat
		if !heat.CanTrade {
			result.Metadata["requested_size"] = result.Size
			result.Metadata["requested_risk_amount"] = result.RiskAmount
			result.Metadata["breaches"] = heat.Breaches
			result.Method = MethodPortfolioHeatExceeded
			result.Size = 0
			result.RiskAmount = 0
			result.Warnings = append(result.Warnings, heat.Warnings...)
		}
	}

	if dirty {
		result.Warnings = append(result.Warnings, e.persistLocked(ctx)...)
	}
	e.finishDecisionLocked(req.Symbol, result, now)
	return result
}

func (e *Engine) finishDecisionLocked(symbol string, result SizingResult, now time.Time) {
	monitoring.RecordSizingDecision(string(result.Method), symbol, result.RiskAmount)
	if e.health != nil {
		e.health.RecordDecision(now)
	}
	if result.Method.Rejected() {
		e.logger.Warning("Sizing %s rejected: %s (%v)", symbol, result.Method, result.Warnings)
		return
	}
	e.logger.Info("Sized %s: size=%.6f risk=$%.2f pct=%.4f method=%s",
		symbol, result.Size, result.RiskAmount, result.RiskPct, result.Method)
}

func normalizeStrategy(strategy string) string {
	if strategy == "" {
		return DefaultStrategy
	}
	return strategy
}
