package reporting

import (
	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
)

// Package reporting renders risk engine output for humans and spreadsheets

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	PrintSummary(summary risk.RiskSummary)
	PrintSizing(symbol string, result risk.SizingResult)
	PrintKelly(symbol string, est risk.KellyEstimate)
	PrintHeat(status risk.HeatStatus)
	PrintBreaker(status risk.CircuitBreakerStatus)
	PrintClose(summary risk.CloseSummary)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteSummaryXLSX(summary risk.RiskSummary, path string) error
	WritePositionsCSV(positions []risk.Position, path string) error
	WriteSummaryJSON(summary risk.RiskSummary, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(account string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	BaseStyle     int
	CurrencyStyle int
	PercentStyle  int
	AlertStyle    int
	TitleStyle    int
}
