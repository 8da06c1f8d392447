package reporting

import (
	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	json    *DefaultJSONReporter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		json:    NewDefaultJSONReporter(),
		paths:   NewDefaultPathManager(),
	}
}

// WithConsole swaps the console reporter, e.g. to capture output
func (r *DefaultReporter) WithConsole(c *DefaultConsoleReporter) *DefaultReporter {
	r.console = c
	return r
}

// Console output methods
func (r *DefaultReporter) PrintSummary(summary risk.RiskSummary) {
	r.console.PrintSummary(summary)
}

func (r *DefaultReporter) PrintSizing(symbol string, result risk.SizingResult) {
	r.console.PrintSizing(symbol, result)
}

func (r *DefaultReporter) PrintKelly(symbol string, est risk.KellyEstimate) {
	r.console.PrintKelly(symbol, est)
}

func (r *DefaultReporter) PrintHeat(status risk.HeatStatus) {
	r.console.PrintHeat(status)
}

func (r *DefaultReporter) PrintBreaker(status risk.CircuitBreakerStatus) {
	r.console.PrintBreaker(status)
}

func (r *DefaultReporter) PrintClose(summary risk.CloseSummary) {
	r.console.PrintClose(summary)
}

// File output methods
func (r *DefaultReporter) WriteSummaryXLSX(summary risk.RiskSummary, path string) error {
	return r.excel.WriteSummaryXLSX(summary, path)
}

func (r *DefaultReporter) WritePositionsCSV(positions []risk.Position, path string) error {
	return r.csv.WritePositionsCSV(positions, path)
}

func (r *DefaultReporter) WriteSummaryJSON(summary risk.RiskSummary, path string) error {
	return r.json.WriteSummaryJSON(summary, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(account string) string {
	return r.paths.GetDefaultOutputDir(account)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

var _ Reporter = (*DefaultReporter)(nil)
