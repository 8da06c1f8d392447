package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
)

func sampleSummary(t *testing.T) risk.RiskSummary {
	t.Helper()
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	e, err := risk.NewEngine(config.DefaultRiskConfig(), risk.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.SetEquity(10000))
	_, err = e.RegisterPosition(ctx, risk.PositionRequest{
		Symbol: "BTCUSDT", Size: 0.05, EntryPrice: 64000, StopLoss: 60000, Sector: "Layer1", Strategy: "swing_trade",
	})
	require.NoError(t, err)
	_, err = e.RegisterPosition(ctx, risk.PositionRequest{
		Symbol: "ETHUSDT", Size: 1, EntryPrice: 3000, StopLoss: 3100, Sector: "Layer1", Strategy: "mean_revert",
	})
	require.NoError(t, err)

	loss := risk.TradeLoss
	for i := 0; i < 5; i++ {
		e.CheckCircuitBreaker(ctx, "scalper", &loss)
	}
	return e.GetRiskSummary()
}

func TestConsoleReporter_PrintSummary(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporterTo(&buf).PrintSummary(sampleSummary(t))

	out := buf.String()
	assert.Contains(t, out, "PORTFOLIO HEAT")
	assert.Contains(t, out, "OPEN POSITIONS (2)")
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "short")
	assert.Contains(t, out, "3.00%")
	assert.Contains(t, out, "PAUSED")
}

func TestConsoleReporter_PrintSizingShowsWarnings(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporterTo(&buf).PrintSizing("BTCUSDT", risk.SizingResult{
		Method:   risk.MethodPortfolioHeatExceeded,
		Warnings: []string{"Portfolio heat would reach 10.27% (max 6.00%, over by 4.27%)"},
		Metadata: map[string]interface{}{"projected_heat": 0.1027},
	})

	out := buf.String()
	assert.Contains(t, out, "PORTFOLIO_HEAT_EXCEEDED")
	assert.Contains(t, out, "projected_heat")
	assert.Contains(t, out, "over by 4.27%")
}

func TestExcelReporter_WriteSummaryXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "summary.xlsx")
	require.NoError(t, NewDefaultExcelReporter().WriteSummaryXLSX(sampleSummary(t), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{summarySheet, positionsSheet, sectorsSheet, breakersSheet, configSheet}, fx.GetSheetList())

	symbol, err := fx.GetCellValue(positionsSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", symbol)

	state, err := fx.GetCellValue(breakersSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "PAUSED", state)

	sector, err := fx.GetCellValue(sectorsSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Layer1", sector)
}

func TestCSVReporter_WritePositionsCSV(t *testing.T) {
	summary := sampleSummary(t)
	path := filepath.Join(t.TempDir(), "positions.csv")
	require.NoError(t, NewDefaultCSVReporter().WritePositionsCSV(summary.Positions, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, positionsHeader, records[0])
	assert.Equal(t, "BTCUSDT", records[1][1])
	assert.Equal(t, "200.00", records[1][6])
	assert.Equal(t, "short", records[2][2])
}

func TestJSONReporter_WriteSummaryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, NewDefaultJSONReporter().WriteSummaryJSON(sampleSummary(t), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 10000.0, decoded["equity"])
	breakers := decoded["circuit_breakers"].([]interface{})
	require.Len(t, breakers, 1)
	assert.Equal(t, "PAUSED", breakers[0].(map[string]interface{})["state"])
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "main"), DefaultOutputDir(" MAIN "))
	assert.Equal(t, filepath.Join("results", "default"), DefaultOutputDir(""))
}
