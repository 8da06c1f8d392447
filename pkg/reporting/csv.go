package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

var positionsHeader = []string{
	"ID",
	"Symbol",
	"Side",
	"Size",
	"Entry_Price",
	"Stop_Loss",
	"Risk_$",
	"Sector",
	"Strategy",
	"Opened_At",
}

// WritePositionsCSV writes open positions to a CSV file
func (r *DefaultCSVReporter) WritePositionsCSV(positions []risk.Position, path string) error {
	if err := NewDefaultPathManager().EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(positionsHeader); err != nil {
		return err
	}
	for _, p := range positions {
		if err := w.Write([]string{
			p.ID,
			p.Symbol,
			string(p.Side),
			strconv.FormatFloat(p.Size, 'f', -1, 64),
			strconv.FormatFloat(p.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(p.StopLoss, 'f', -1, 64),
			fmt.Sprintf("%.2f", p.RiskAmount),
			p.Sector,
			p.Strategy,
			p.OpenedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
