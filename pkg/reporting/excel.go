package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
)

const (
	summarySheet   = "Summary"
	positionsSheet = "Positions"
	sectorsSheet   = "Sectors"
	breakersSheet  = "Breakers"
	configSheet    = "Config"
)

// DefaultExcelReporter writes risk summaries as workbooks
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteSummaryXLSX writes a workbook with summary, positions, sectors,
// breakers and config sheets
func (r *DefaultExcelReporter) WriteSummaryXLSX(summary risk.RiskSummary, path string) error {
	if err := NewDefaultPathManager().EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	for _, sheet := range []string{positionsSheet, sectorsSheet, breakersSheet, configSheet} {
		if _, err := fx.NewSheet(sheet); err != nil {
			return err
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	writers := []func(*excelize.File, risk.RiskSummary, ExcelStyles) error{
		r.writeSummarySheet,
		r.writePositionsSheet,
		r.writeSectorsSheet,
		r.writeBreakersSheet,
		r.writeConfigSheet,
	}
	for _, write := range writers {
		if err := write(fx, summary, styles); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	thinBorder := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	// Header style - Dark slate background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: thinBorder})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10, // 0.00%
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	// Red fill for breached limits and paused breakers
	styles.AlertStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "9C0006"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Border: thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.TitleStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "2F4F4F"},
	})
	return styles, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, style)
	}
}

func setCell(fx *excelize.File, sheet string, col, row int, value interface{}, style int) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	fx.SetCellValue(sheet, cell, value)
	fx.SetCellStyle(sheet, cell, cell, style)
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, s risk.RiskSummary, styles ExcelStyles) error {
	sheet := summarySheet
	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 28)

	fx.SetCellValue(sheet, "A1", "Risk Summary")
	fx.SetCellStyle(sheet, "A1", "A1", styles.TitleStyle)

	verdictStyle := styles.BaseStyle
	verdict := "CAN TRADE"
	if !s.Heat.CanTrade {
		verdict = "BLOCKED"
		verdictStyle = styles.AlertStyle
	}

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Generated At", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"), styles.BaseStyle},
		{"Equity", s.Equity, styles.CurrencyStyle},
		{"Total Heat", s.Heat.TotalHeat, styles.PercentStyle},
		{"Max Portfolio Heat", s.Config.MaxPortfolioHeat, styles.PercentStyle},
		{"Utilization", s.Heat.Utilization, styles.PercentStyle},
		{"Open Positions", len(s.Positions), styles.BaseStyle},
		{"Tracked Strategies", len(s.CircuitBreakers), styles.BaseStyle},
		{"Heat Verdict", verdict, verdictStyle},
	}
	if s.LastPersistenceError != "" {
		rows = append(rows, struct {
			label string
			value interface{}
			style int
		}{"Last Save Error", s.LastPersistenceError, styles.AlertStyle})
	}

	for i, row := range rows {
		setCell(fx, sheet, 1, i+3, row.label, styles.BaseStyle)
		setCell(fx, sheet, 2, i+3, row.value, row.style)
	}
	return nil
}

func (r *DefaultExcelReporter) writePositionsSheet(fx *excelize.File, s risk.RiskSummary, styles ExcelStyles) error {
	sheet := positionsSheet
	fx.SetColWidth(sheet, "A", "A", 38) // ID
	fx.SetColWidth(sheet, "B", "J", 14)

	writeHeader(fx, sheet, []string{
		"ID", "Symbol", "Side", "Size", "Entry", "Stop", "Risk $", "Heat", "Sector", "Strategy", "Opened At",
	}, styles.HeaderStyle)

	for i, p := range s.Positions {
		row := i + 2
		setCell(fx, sheet, 1, row, p.ID, styles.BaseStyle)
		setCell(fx, sheet, 2, row, p.Symbol, styles.BaseStyle)
		setCell(fx, sheet, 3, row, string(p.Side), styles.BaseStyle)
		setCell(fx, sheet, 4, row, p.Size, styles.BaseStyle)
		setCell(fx, sheet, 5, row, p.EntryPrice, styles.BaseStyle)
		setCell(fx, sheet, 6, row, p.StopLoss, styles.BaseStyle)
		setCell(fx, sheet, 7, row, p.RiskAmount, styles.CurrencyStyle)
		setCell(fx, sheet, 8, row, s.Heat.PositionRisks[p.Symbol], styles.PercentStyle)
		setCell(fx, sheet, 9, row, p.Sector, styles.BaseStyle)
		setCell(fx, sheet, 10, row, p.Strategy, styles.BaseStyle)
		setCell(fx, sheet, 11, row, p.OpenedAt.Format("2006-01-02 15:04:05"), styles.BaseStyle)
	}
	return nil
}

func (r *DefaultExcelReporter) writeSectorsSheet(fx *excelize.File, s risk.RiskSummary, styles ExcelStyles) error {
	sheet := sectorsSheet
	fx.SetColWidth(sheet, "A", "C", 18)
	writeHeader(fx, sheet, []string{"Sector", "Heat", "Max"}, styles.HeaderStyle)

	for i, sector := range sortedKeys(s.Heat.SectorHeat) {
		row := i + 2
		heat := s.Heat.SectorHeat[sector]
		heatStyle := styles.PercentStyle
		if heat > s.Config.MaxSectorHeat {
			heatStyle = styles.AlertStyle
		}
		setCell(fx, sheet, 1, row, sector, styles.BaseStyle)
		setCell(fx, sheet, 2, row, heat, heatStyle)
		setCell(fx, sheet, 3, row, s.Config.MaxSectorHeat, styles.PercentStyle)
	}
	return nil
}

func (r *DefaultExcelReporter) writeBreakersSheet(fx *excelize.File, s risk.RiskSummary, styles ExcelStyles) error {
	sheet := breakersSheet
	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "E", 18)
	writeHeader(fx, sheet, []string{"Strategy", "State", "Losses", "Multiplier", "Paused Until"}, styles.HeaderStyle)

	for i, b := range s.CircuitBreakers {
		row := i + 2
		stateStyle := styles.BaseStyle
		if b.State == risk.BreakerPaused {
			stateStyle = styles.AlertStyle
		}
		setCell(fx, sheet, 1, row, b.Strategy, styles.BaseStyle)
		setCell(fx, sheet, 2, row, b.State.String(), stateStyle)
		setCell(fx, sheet, 3, row, b.ConsecutiveLosses, styles.BaseStyle)
		setCell(fx, sheet, 4, row, b.RiskMultiplier, styles.BaseStyle)
		setCell(fx, sheet, 5, row, formatTimePtr(b.PausedUntil), styles.BaseStyle)
	}
	return nil
}

func (r *DefaultExcelReporter) writeConfigSheet(fx *excelize.File, s risk.RiskSummary, styles ExcelStyles) error {
	sheet := configSheet
	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 16)
	writeHeader(fx, sheet, []string{"Parameter", "Value"}, styles.HeaderStyle)

	c := s.Config
	params := []struct {
		name  string
		value interface{}
		style int
	}{
		{"Default Risk %", c.DefaultRiskPct, styles.PercentStyle},
		{"ATR Multiplier", c.ATRMultiplier, styles.BaseStyle},
		{"Max Position Size", c.MaxPositionSize, styles.BaseStyle},
		{"Max Portfolio Heat", c.MaxPortfolioHeat, styles.PercentStyle},
		{"Max Position Heat", c.MaxPositionHeat, styles.PercentStyle},
		{"Max Sector Heat", c.MaxSectorHeat, styles.PercentStyle},
		{"Kelly Max Fraction", c.KellyMaxFraction, styles.BaseStyle},
		{"ATR History Limit", c.ATRHistoryLimit, styles.BaseStyle},
		{"ATR Min Samples", c.ATRMinSamples, styles.BaseStyle},
		{"Reduced Threshold", c.ReducedThreshold, styles.BaseStyle},
		{"Paused Threshold", c.PausedThreshold, styles.BaseStyle},
		{"Pause Duration", c.PauseDuration.String(), styles.BaseStyle},
		{"Reduced Risk Scale", c.ReducedRiskScale, styles.BaseStyle},
	}
	for i, p := range params {
		setCell(fx, sheet, 1, i+2, p.name, styles.BaseStyle)
		setCell(fx, sheet, 2, i+2, p.value, p.style)
	}
	return nil
}
