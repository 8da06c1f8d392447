package risk

import (
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
)

// SizingMethod tells callers how a size was produced or why it was refused.
// Branch on it instead of parsing warnings.
type SizingMethod string

const (
	MethodATR                   SizingMethod = "ATR"
	MethodATRKelly              SizingMethod = "ATR+KELLY"
	MethodATRInvalid            SizingMethod = "ATR_INVALID"
	MethodCircuitBreakerPaused  SizingMethod = "CIRCUIT_BREAKER_PAUSED"
	MethodPortfolioHeatExceeded SizingMethod = "PORTFOLIO_HEAT_EXCEEDED"
)

// Rejected reports whether the method is one of the refusal outcomes
func (m SizingMethod) Rejected() bool {
	switch m {
	case MethodATRInvalid, MethodCircuitBreakerPaused, MethodPortfolioHeatExceeded:
		return true
	default:
		return false
	}
}

// SizingResult is the answer to a sizing request
type SizingResult struct {
	Size         float64                `json:"size"`
	RiskAmount   float64                `json:"risk_amount"`
	StopDistance float64                `json:"stop_distance"`
	RiskPct      float64                `json:"risk_pct"`
	Method       SizingMethod           `json:"method"`
	Warnings     []string               `json:"warnings"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// Accepted reports whether the caller may open a position of Size
func (r SizingResult) Accepted() bool {
	return !r.Method.Rejected() && r.Size > 0
}

// Side is the direction of a position
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// sign returns +1 for longs and -1 for shorts
func (s Side) sign() int64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// sideFromStop infers direction from stop placement: a stop below entry
// protects a long, a stop above entry protects a short
func sideFromStop(entry, stop float64) Side {
	if stop > entry {
		return SideShort
	}
	return SideLong
}

// Position is an open, risk-tracked trade. Size is always positive.
type Position struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	Sector     string    `json:"sector,omitempty"`
	Strategy   string    `json:"strategy"`
	RiskAmount float64   `json:"risk_amount"`
	OpenedAt   time.Time `json:"opened_at"`
}

// TradeResult is the outcome fed into the circuit breaker
type TradeResult string

const (
	TradeWin  TradeResult = "WIN"
	TradeLoss TradeResult = "LOSS"
)

// BreakerState is the circuit breaker tier of a strategy
type BreakerState int

const (
	BreakerNormal BreakerState = iota
	BreakerReduced
	BreakerPaused
)

// String returns the string representation of the breaker state
func (s BreakerState) String() string {
	switch s {
	case BreakerNormal:
		return "NORMAL"
	case BreakerReduced:
		return "REDUCED"
	case BreakerPaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets the state appear by name in JSON output
func (s BreakerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreakerStatus describes one strategy's breaker
type CircuitBreakerStatus struct {
	Strategy          string       `json:"strategy"`
	State             BreakerState `json:"state"`
	ConsecutiveLosses int          `json:"consecutive_losses"`
	RiskMultiplier    float64      `json:"risk_multiplier"`
	Paused            bool         `json:"paused"`
	PausedUntil       *time.Time   `json:"paused_until,omitempty"`
	LastLoss          *time.Time   `json:"last_loss,omitempty"`
	Warnings          []string     `json:"warnings,omitempty"`
}

// HeatLimit names the limit a heat check can breach
type HeatLimit string

const (
	LimitPortfolio HeatLimit = "portfolio"
	LimitPosition  HeatLimit = "position"
	LimitSector    HeatLimit = "sector"
)

// HeatBreach describes one limit the new position would break
type HeatBreach struct {
	Limit  HeatLimit `json:"limit"`
	Sector string    `json:"sector,omitempty"`
	Value  float64   `json:"value"`
	Max    float64   `json:"max"`
	Excess float64   `json:"excess"`
}

// HeatRequest asks whether a new position's risk fits the heat budget.
// NewPositionRisk is a fraction of equity; callers wanting correlation
// discounts pre-scale it.
type HeatRequest struct {
	NewPositionRisk float64
	Symbol          string
	Sector          string
}

// HeatStatus is the advisory answer to a HeatRequest
type HeatStatus struct {
	Equity          float64            `json:"equity"`
	TotalHeat       float64            `json:"total_heat"`
	NewPositionRisk float64            `json:"new_position_risk"`
	ProjectedHeat   float64            `json:"projected_heat"`
	PositionRisks   map[string]float64 `json:"position_risks"`
	SectorHeat      map[string]float64 `json:"sector_heat"`
	CanTrade        bool               `json:"can_trade"`
	Utilization     float64            `json:"utilization"`
	Breaches        []HeatBreach       `json:"breaches,omitempty"`
	Warnings        []string           `json:"warnings,omitempty"`
}

// PositionRequest registers a position the caller decided to open
type PositionRequest struct {
	Symbol     string
	Size       float64
	EntryPrice float64
	StopLoss   float64
	Sector     string
	Strategy   string
}

// RegisterResult is returned by RegisterPosition
type RegisterResult struct {
	Position Position  `json:"position"`
	Replaced *Position `json:"replaced,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

// CloseSummary is returned by ClosePosition
type CloseSummary struct {
	Symbol       string               `json:"symbol"`
	Strategy     string               `json:"strategy"`
	Side         Side                 `json:"side"`
	Size         float64              `json:"size"`
	EntryPrice   float64              `json:"entry_price"`
	ExitPrice    float64              `json:"exit_price"`
	PnL          float64              `json:"pnl"`
	PnLPercent   float64              `json:"pnl_percent"`
	Outcome      TradeResult          `json:"outcome"`
	HoldDuration time.Duration        `json:"hold_duration"`
	Breaker      CircuitBreakerStatus `json:"breaker"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// RiskSummary is a read-only view of the whole engine
type RiskSummary struct {
	GeneratedAt          time.Time              `json:"generated_at"`
	Equity               float64                `json:"equity"`
	Heat                 HeatStatus             `json:"heat"`
	Positions            []Position             `json:"positions"`
	CircuitBreakers      []CircuitBreakerStatus `json:"circuit_breakers"`
	ATRSamples           map[string]int         `json:"atr_samples"`
	Config               config.RiskConfig      `json:"config"`
	LastPersistenceError string                 `json:"last_persistence_error,omitempty"`
}
