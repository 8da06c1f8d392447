package risk

import (
	"fmt"
)

// unassignedSector groups positions registered without a sector
const unassignedSector = "UNASSIGNED"

// CheckPortfolioHeat tests a prospective position against the portfolio,
// position and sector heat limits. It is advisory and changes nothing.
func (e *Engine) CheckPortfolioHeat(req HeatRequest) HeatStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.heatLocked(req)
}

func (e *Engine) heatLocked(req HeatRequest) HeatStatus {
	status := HeatStatus{
		Equity:          e.equity,
		NewPositionRisk: req.NewPositionRisk,
		PositionRisks:   make(map[string]float64),
		SectorHeat:      make(map[string]float64),
		Warnings:        []string{},
	}

	if !isFinite(e.equity) || e.equity <= 0 {
		status.Warnings = append(status.Warnings,
			"Equity unknown - set equity or size a trade before checking heat")
		return status
	}
	if !isFinite(req.NewPositionRisk) || req.NewPositionRisk < 0 {
		status.Warnings = append(status.Warnings,
			fmt.Sprintf("New position risk must be a non-negative fraction, got %v", req.NewPositionRisk))
		return status
	}

	for symbol, pos := range e.positions {
		// The incoming order replaces any open position on the same symbol.
		if req.Symbol != "" && symbol == req.Symbol {
			continue
		}
		risk := pos.RiskAmount / e.equity
		status.PositionRisks[symbol] = risk
		status.TotalHeat += risk
		status.SectorHeat[sectorKey(pos.Sector)] += risk
	}
	status.ProjectedHeat = status.TotalHeat + req.NewPositionRisk
	status.Utilization = status.TotalHeat / e.config.MaxPortfolioHeat

	if status.ProjectedHeat > e.config.MaxPortfolioHeat+heatEpsilon {
		status.addBreach(HeatBreach{
			Limit: LimitPortfolio,
			Value: status.ProjectedHeat,
			Max:   e.config.MaxPortfolioHeat,
		}, "Portfolio heat")
	}
	if req.NewPositionRisk > e.config.MaxPositionHeat+heatEpsilon {
		status.addBreach(HeatBreach{
			Limit: LimitPosition,
			Value: req.NewPositionRisk,
			Max:   e.config.MaxPositionHeat,
		}, "Position heat")
	}
	if req.Sector != "" {
		sectorHeat := status.SectorHeat[req.Sector] + req.NewPositionRisk
		if sectorHeat > e.config.MaxSectorHeat+heatEpsilon {
			status.addBreach(HeatBreach{
				Limit:  LimitSector,
				Sector: req.Sector,
				Value:  sectorHeat,
				Max:    e.config.MaxSectorHeat,
			}, fmt.Sprintf("Sector %s heat", req.Sector))
		}
	}

	status.CanTrade = len(status.Breaches) == 0
	return status
}

func (s *HeatStatus) addBreach(b HeatBreach, label string) {
	b.Excess = b.Value - b.Max
	s.Breaches = append(s.Breaches, b)
	s.Warnings = append(s.Warnings, fmt.Sprintf("%s would reach %.2f%% (max %.2f%%, over by %.2f%%)",
		label, b.Value*100, b.Max*100, b.Excess*100))
}

func sectorKey(sector string) string {
	if sector == "" {
		return unassignedSector
	}
	return sector
}
