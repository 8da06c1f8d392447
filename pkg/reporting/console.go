package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
)

// DefaultConsoleReporter renders engine output as tables
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to stdout
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo creates a console reporter writing to w
func NewConsoleReporterTo(w io.Writer) *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: w}
}

func (r *DefaultConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func (r *DefaultConsoleReporter) keyValueColumns(t table.Writer) {
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, Align: text.AlignLeft},
	})
}

func (r *DefaultConsoleReporter) printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(r.out, "  ⚠️  %s\n", w)
	}
}

// PrintSizing prints a sizing decision
func (r *DefaultConsoleReporter) PrintSizing(symbol string, result risk.SizingResult) {
	t := r.newTable(fmt.Sprintf("📐 POSITION SIZE - %s", symbol))
	t.AppendRows([]table.Row{
		{"Method", methodLabel(result.Method)},
		{"Size", fmt.Sprintf("%.8f", result.Size)},
		{"Risk Amount", fmt.Sprintf("$%.2f", result.RiskAmount)},
		{"Risk %", fmt.Sprintf("%.3f%%", result.RiskPct*100)},
		{"Stop Distance", fmt.Sprintf("%.4f", result.StopDistance)},
	})
	keys := make([]string, 0, len(result.Metadata))
	for k := range result.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		t.AppendSeparator()
		for _, k := range keys {
			t.AppendRow(table.Row{k, formatValue(result.Metadata[k])})
		}
	}
	r.keyValueColumns(t)
	t.Render()
	r.printWarnings(result.Warnings)
}

// PrintKelly prints a Kelly estimate
func (r *DefaultConsoleReporter) PrintKelly(symbol string, est risk.KellyEstimate) {
	percentile := "n/a"
	if est.Percentile >= 0 {
		percentile = fmt.Sprintf("%.1f", est.Percentile)
	}
	t := r.newTable(fmt.Sprintf("🎲 KELLY FRACTION - %s", symbol))
	t.AppendRows([]table.Row{
		{"Fraction", fmt.Sprintf("%.4f", est.Fraction)},
		{"Full Kelly", fmt.Sprintf("%.4f", est.FullKelly)},
		{"Capped Kelly", fmt.Sprintf("%.4f", est.CappedKelly)},
		{"Volatility", string(est.Quartile)},
		{"Multiplier", fmt.Sprintf("%.2f", est.Multiplier)},
		{"ATR Percentile", percentile},
		{"ATR Samples", est.Samples},
	})
	r.keyValueColumns(t)
	t.Render()
	r.printWarnings(est.Warnings)
}

// PrintHeat prints a heat check with its per-position breakdown
func (r *DefaultConsoleReporter) PrintHeat(status risk.HeatStatus) {
	verdict := "✅ CAN TRADE"
	if !status.CanTrade {
		verdict = "🛑 BLOCKED"
	}
	t := r.newTable("🔥 PORTFOLIO HEAT")
	t.AppendRows([]table.Row{
		{"Verdict", verdict},
		{"Equity", fmt.Sprintf("$%.2f", status.Equity)},
		{"Total Heat", pct(status.TotalHeat)},
		{"New Position", pct(status.NewPositionRisk)},
		{"Projected Heat", pct(status.ProjectedHeat)},
		{"Utilization", fmt.Sprintf("%.1f%%", status.Utilization*100)},
	})
	if len(status.SectorHeat) > 0 {
		t.AppendSeparator()
		for _, sector := range sortedKeys(status.SectorHeat) {
			t.AppendRow(table.Row{"Sector " + sector, pct(status.SectorHeat[sector])})
		}
	}
	r.keyValueColumns(t)
	t.Render()
	r.printWarnings(status.Warnings)
}

// PrintBreaker prints one strategy's circuit breaker
func (r *DefaultConsoleReporter) PrintBreaker(status risk.CircuitBreakerStatus) {
	t := r.newTable(fmt.Sprintf("⚡ CIRCUIT BREAKER - %s", status.Strategy))
	t.AppendRows([]table.Row{
		{"State", breakerLabel(status.State)},
		{"Consecutive Losses", status.ConsecutiveLosses},
		{"Risk Multiplier", fmt.Sprintf("%.2f", status.RiskMultiplier)},
		{"Paused Until", formatTimePtr(status.PausedUntil)},
		{"Last Loss", formatTimePtr(status.LastLoss)},
	})
	r.keyValueColumns(t)
	t.Render()
	r.printWarnings(status.Warnings)
}

// PrintClose prints the outcome of a closed position
func (r *DefaultConsoleReporter) PrintClose(summary risk.CloseSummary) {
	outcome := "✅ WIN"
	if summary.Outcome == risk.TradeLoss {
		outcome = "❌ LOSS"
	}
	t := r.newTable(fmt.Sprintf("🏁 CLOSED %s %s", strings.ToUpper(string(summary.Side)), summary.Symbol))
	t.AppendRows([]table.Row{
		{"Outcome", outcome},
		{"Size", fmt.Sprintf("%.8f", summary.Size)},
		{"Entry → Exit", fmt.Sprintf("%.4f → %.4f", summary.EntryPrice, summary.ExitPrice)},
		{"PnL", fmt.Sprintf("$%.2f (%.2f%%)", summary.PnL, summary.PnLPercent)},
		{"Held", summary.HoldDuration.Round(time.Second).String()},
		{"Strategy", summary.Strategy},
		{"Breaker", fmt.Sprintf("%s (%d losses)", breakerLabel(summary.Breaker.State), summary.Breaker.ConsecutiveLosses)},
	})
	r.keyValueColumns(t)
	t.Render()
	r.printWarnings(summary.Warnings)
}

// PrintSummary prints heat, positions and breakers
func (r *DefaultConsoleReporter) PrintSummary(summary risk.RiskSummary) {
	r.PrintHeat(summary.Heat)

	pt := r.newTable(fmt.Sprintf("📋 OPEN POSITIONS (%d)", len(summary.Positions)))
	pt.AppendHeader(table.Row{"Symbol", "Side", "Size", "Entry", "Stop", "Risk $", "Heat", "Sector", "Strategy"})
	for _, p := range summary.Positions {
		pt.AppendRow(table.Row{
			p.Symbol,
			string(p.Side),
			fmt.Sprintf("%.6f", p.Size),
			fmt.Sprintf("%.4f", p.EntryPrice),
			fmt.Sprintf("%.4f", p.StopLoss),
			fmt.Sprintf("%.2f", p.RiskAmount),
			pct(summary.Heat.PositionRisks[p.Symbol]),
			p.Sector,
			p.Strategy,
		})
	}
	pt.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	pt.Render()

	if len(summary.CircuitBreakers) > 0 {
		bt := r.newTable("⚡ CIRCUIT BREAKERS")
		bt.AppendHeader(table.Row{"Strategy", "State", "Losses", "Multiplier", "Paused Until"})
		for _, b := range summary.CircuitBreakers {
			bt.AppendRow(table.Row{
				b.Strategy,
				breakerLabel(b.State),
				b.ConsecutiveLosses,
				fmt.Sprintf("%.2f", b.RiskMultiplier),
				formatTimePtr(b.PausedUntil),
			})
		}
		bt.Render()
	}

	if summary.LastPersistenceError != "" {
		r.printWarnings([]string{"Last save failed: " + summary.LastPersistenceError})
	}
}

func methodLabel(m risk.SizingMethod) string {
	if m.Rejected() {
		return "🛑 " + string(m)
	}
	return "✅ " + string(m)
}

func breakerLabel(s risk.BreakerState) string {
	switch s {
	case risk.BreakerReduced:
		return "🟡 " + s.String()
	case risk.BreakerPaused:
		return "🔴 " + s.String()
	default:
		return "🟢 " + s.String()
	}
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return fmt.Sprintf("%.6g", val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
