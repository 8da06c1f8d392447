package reporting

import (
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultJSONReporter writes summaries as indented JSON
type DefaultJSONReporter struct{}

// NewDefaultJSONReporter creates a new JSON reporter
func NewDefaultJSONReporter() *DefaultJSONReporter {
	return &DefaultJSONReporter{}
}

// FormatSummary encodes a summary as indented JSON
func (r *DefaultJSONReporter) FormatSummary(summary risk.RiskSummary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

// WriteSummaryJSON writes a summary to path
func (r *DefaultJSONReporter) WriteSummaryJSON(summary risk.RiskSummary, path string) error {
	data, err := r.FormatSummary(summary)
	if err != nil {
		return err
	}
	if err := NewDefaultPathManager().EnsureDirectoryExists(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
