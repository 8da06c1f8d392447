package risk

import (
	"fmt"
	"math"
)

// minATR is the smallest ATR the sizer accepts
const minATR = 1e-12

// heatEpsilon absorbs float noise when comparing heat against a limit
const heatEpsilon = 1e-9

const msgATRInvalid = "ATR too small or zero - cannot size position safely"

// ATRSizingRequest holds the inputs of a volatility-scaled sizing. Zero
// RiskPct or ATRMultiplier means "use the configured default" when passed to
// Engine.CalculateATRPositionSize; ATRPositionSize itself requires both.
// MaxPositionSize of zero disables the cap.
type ATRSizingRequest struct {
	Equity          float64
	ATR             float64
	RiskPct         float64
	ATRMultiplier   float64
	MaxPositionSize float64
}

// ATRPositionSize sizes a position so that a stop ATRMultiplier ATRs away
// loses exactly Equity*RiskPct. It has no side effects.
func ATRPositionSize(req ATRSizingRequest) SizingResult {
	result := SizingResult{
		RiskPct:  req.RiskPct,
		Method:   MethodATR,
		Warnings: []string{},
		Metadata: map[string]interface{}{
			"atr":            req.ATR,
			"atr_multiplier": req.ATRMultiplier,
			"equity":         req.Equity,
		},
	}

	if msg := validateSizingInputs(req); msg != "" {
		result.Method = MethodATRInvalid
		result.Warnings = append(result.Warnings, msg)
		return result
	}

	riskAmount := req.Equity * req.RiskPct
	stopDistance := req.ATR * req.ATRMultiplier
	size := riskAmount / stopDistance

	if req.MaxPositionSize > 0 && size > req.MaxPositionSize {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Position size %.6f capped at maximum %.6f", size, req.MaxPositionSize))
		result.Metadata["uncapped_size"] = size
		size = req.MaxPositionSize
		riskAmount = size * stopDistance
	}

	result.Size = size
	result.RiskAmount = riskAmount
	result.StopDistance = stopDistance
	return result
}

func validateSizingInputs(req ATRSizingRequest) string {
	if !isFinite(req.ATR) || req.ATR < minATR {
		return msgATRInvalid
	}
	if !isFinite(req.Equity) || req.Equity <= 0 {
		return fmt.Sprintf("Equity must be positive, got %v", req.Equity)
	}
	if !isFinite(req.RiskPct) || req.RiskPct <= 0 || req.RiskPct > 1 {
		return fmt.Sprintf("Risk percentage must be within (0, 1], got %v", req.RiskPct)
	}
	if !isFinite(req.ATRMultiplier) || req.ATRMultiplier <= 0 {
		return fmt.Sprintf("ATR multiplier must be positive, got %v", req.ATRMultiplier)
	}
	if !isFinite(req.MaxPositionSize) || req.MaxPositionSize < 0 {
		return fmt.Sprintf("Max position size must be non-negative, got %v", req.MaxPositionSize)
	}
	return ""
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func usableATR(v float64) bool {
	return isFinite(v) && v >= minATR
}
