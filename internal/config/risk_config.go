package config

import (
	"fmt"
	"time"

	riskerrors "github.com/ducminhle1904/crypto-risk-engine/internal/errors"
)

// Default limits
const (
	DefaultRiskPct          = 0.02
	DefaultATRMultiplier    = 2.0
	DefaultMaxPortfolioHeat = 0.06
	DefaultMaxPositionHeat  = 0.02
	DefaultMaxSectorHeat    = 0.04
	DefaultKellyMaxFraction = 0.25 // quarter-Kelly
	DefaultReducedThreshold = 3
	DefaultPausedThreshold  = 5
	DefaultPauseDuration    = 24 * time.Hour
	DefaultReducedRiskScale = 0.5
	DefaultATRHistoryLimit  = 100
	DefaultATRMinSamples    = 5
	DefaultSaveRetries      = 3
)

// RiskConfig contains every tunable of the sizing and gating engine
type RiskConfig struct {
	// Sizing
	DefaultRiskPct  float64 `json:"default_risk_pct"`  // fraction of equity risked per trade
	ATRMultiplier   float64 `json:"atr_multiplier"`    // stop distance = ATR × multiplier
	MaxPositionSize float64 `json:"max_position_size"` // absolute size cap, 0 disables

	// Portfolio heat
	MaxPortfolioHeat float64 `json:"max_portfolio_heat"`
	MaxPositionHeat  float64 `json:"max_position_heat"`
	MaxSectorHeat    float64 `json:"max_sector_heat"`

	// Kelly
	KellyMaxFraction float64 `json:"kelly_max_fraction"`
	ATRHistoryLimit  int     `json:"atr_history_limit"`
	ATRMinSamples    int     `json:"atr_min_samples"`

	// Circuit breaker
	ReducedThreshold int           `json:"reduced_threshold"`
	PausedThreshold  int           `json:"paused_threshold"`
	PauseDuration    time.Duration `json:"pause_duration"`
	ReducedRiskScale float64       `json:"reduced_risk_scale"`

	// Persistence
	SaveRetries int `json:"save_retries"`
}

// DefaultRiskConfig returns the documented defaults
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		DefaultRiskPct:   DefaultRiskPct,
		ATRMultiplier:    DefaultATRMultiplier,
		MaxPortfolioHeat: DefaultMaxPortfolioHeat,
		MaxPositionHeat:  DefaultMaxPositionHeat,
		MaxSectorHeat:    DefaultMaxSectorHeat,
		KellyMaxFraction: DefaultKellyMaxFraction,
		ATRHistoryLimit:  DefaultATRHistoryLimit,
		ATRMinSamples:    DefaultATRMinSamples,
		ReducedThreshold: DefaultReducedThreshold,
		PausedThreshold:  DefaultPausedThreshold,
		PauseDuration:    DefaultPauseDuration,
		ReducedRiskScale: DefaultReducedRiskScale,
		SaveRetries:      DefaultSaveRetries,
	}
}

// Validate rejects contradictory limits. It never rewrites a value.
func (c RiskConfig) Validate() error {
	if err := c.validateSizing(); err != nil {
		return err
	}
	if err := c.validateHeat(); err != nil {
		return err
	}
	if err := c.validateKelly(); err != nil {
		return err
	}
	return c.validateBreaker()
}

func (c RiskConfig) validateSizing() error {
	if c.DefaultRiskPct <= 0 || c.DefaultRiskPct > 1 {
		return invalid("default risk pct must be within (0, 1], got %.4f", c.DefaultRiskPct)
	}
	if c.ATRMultiplier <= 0 {
		return invalid("ATR multiplier must be positive, got %.4f", c.ATRMultiplier)
	}
	if c.MaxPositionSize < 0 {
		return invalid("max position size must be non-negative, got %.6f", c.MaxPositionSize)
	}
	if c.SaveRetries < 1 {
		return invalid("save retries must be at least 1, got %d", c.SaveRetries)
	}
	return nil
}

func (c RiskConfig) validateHeat() error {
	limits := []struct {
		name  string
		value float64
	}{
		{"max portfolio heat", c.MaxPortfolioHeat},
		{"max position heat", c.MaxPositionHeat},
		{"max sector heat", c.MaxSectorHeat},
	}
	for _, l := range limits {
		if l.value <= 0 || l.value > 1 {
			return invalid("%s must be within (0, 1], got %.4f", l.name, l.value)
		}
	}
	if c.MaxPositionHeat > c.MaxPortfolioHeat {
		return invalid("max position heat %.4f exceeds max portfolio heat %.4f", c.MaxPositionHeat, c.MaxPortfolioHeat)
	}
	if c.MaxSectorHeat > c.MaxPortfolioHeat {
		return invalid("max sector heat %.4f exceeds max portfolio heat %.4f", c.MaxSectorHeat, c.MaxPortfolioHeat)
	}
	if c.MaxPositionHeat > c.MaxSectorHeat {
		return invalid("max position heat %.4f exceeds max sector heat %.4f", c.MaxPositionHeat, c.MaxSectorHeat)
	}
	return nil
}

func (c RiskConfig) validateKelly() error {
	if c.KellyMaxFraction <= 0 || c.KellyMaxFraction > 1 {
		return invalid("kelly max fraction must be within (0, 1], got %.4f", c.KellyMaxFraction)
	}
	if c.ATRMinSamples < 1 {
		return invalid("ATR min samples must be at least 1, got %d", c.ATRMinSamples)
	}
	if c.ATRHistoryLimit < c.ATRMinSamples {
		return invalid("ATR history limit %d is below min samples %d", c.ATRHistoryLimit, c.ATRMinSamples)
	}
	return nil
}

func (c RiskConfig) validateBreaker() error {
	if c.ReducedThreshold < 1 {
		return invalid("reduced threshold must be at least 1, got %d", c.ReducedThreshold)
	}
	if c.PausedThreshold <= c.ReducedThreshold {
		return invalid("paused threshold %d must exceed reduced threshold %d", c.PausedThreshold, c.ReducedThreshold)
	}
	if c.PauseDuration <= 0 {
		return invalid("pause duration must be positive, got %s", c.PauseDuration)
	}
	if c.ReducedRiskScale <= 0 || c.ReducedRiskScale >= 1 {
		return invalid("reduced risk scale must be within (0, 1), got %.4f", c.ReducedRiskScale)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return riskerrors.NewConfigurationError("config", "validate", fmt.Sprintf(format, args...))
}
