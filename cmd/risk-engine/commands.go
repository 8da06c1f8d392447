package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ducminhle1904/crypto-risk-engine/internal/indicators"
	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/data"
)

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

type kellyFlags struct {
	winRate *float64
	avgWin  *float64
	avgLoss *float64
}

func registerKellyFlags(fs *flag.FlagSet) kellyFlags {
	return kellyFlags{
		winRate: fs.Float64("win-rate", 0, "Historical win rate in [0, 1]"),
		avgWin:  fs.Float64("avg-win", 0, "Average winning trade"),
		avgLoss: fs.Float64("avg-loss", 0, "Average losing trade (magnitude)"),
	}
}

// supplied reports whether any statistic was given on the command line.
// A zero win rate is a real input, so presence is checked rather than value.
func (k kellyFlags) supplied(fs *flag.FlagSet) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "win-rate", "avg-win", "avg-loss":
			set = true
		}
	})
	return set
}

func (k kellyFlags) inputs() risk.KellyInputs {
	return risk.KellyInputs{WinRate: *k.winRate, AvgWin: *k.avgWin, AvgLoss: *k.avgLoss}
}

type candleFlags struct {
	path   *string
	format *string
	period *int
}

func registerCandleFlags(fs *flag.FlagSet) candleFlags {
	return candleFlags{
		path:   fs.String("candles", "", "OHLCV CSV file to derive ATR from when -atr is not given"),
		format: fs.String("candle-format", "default", "Candle CSV format: default or bybit"),
		period: fs.Int("atr-period", indicators.DefaultATRPeriod, "ATR lookback for -candles"),
	}
}

// resolveATR returns the explicit ATR, or derives one from the candle file.
// A symbol with no volatility history is seeded with the earlier ATR values.
func (c candleFlags) resolveATR(ctx context.Context, a *app, symbol string, explicit float64) (float64, error) {
	if *c.path == "" || explicit != 0 {
		return explicit, nil
	}

	format := data.DefaultCSVFormat
	switch strings.ToLower(*c.format) {
	case "default":
	case "bybit":
		format = data.BybitCSVFormat
	default:
		return 0, fmt.Errorf("-candle-format must be default or bybit, got %q", *c.format)
	}

	candles, warnings, err := data.NewCSVProviderWithFormat(format).LoadCandles(*c.path)
	if err != nil {
		return 0, err
	}
	for _, w := range warnings {
		fmt.Fprintf(a.stderr, "⚠️  candles: %s\n", w)
	}

	// only the trailing window can land in the bounded history
	window := data.LastN(candles, a.cfg.Risk.ATRHistoryLimit+*c.period+1)
	series, err := indicators.ATRSeries(window, *c.period)
	if err != nil {
		return 0, err
	}
	current := series[len(series)-1]

	if symbol != "" && len(series) > 1 && len(a.engine.ATRHistory(symbol)) == 0 {
		kept, warns := a.engine.SeedATRHistory(ctx, symbol, series[:len(series)-1])
		for _, w := range warns {
			fmt.Fprintf(a.stderr, "⚠️  %s\n", w)
		}
		fmt.Fprintf(a.stdout, "📈 Seeded %s volatility history with %d ATR samples\n", symbol, kept)
	}

	fmt.Fprintf(a.stdout, "📈 ATR(%d) from %d candles: %.8f\n", *c.period, len(window), current)
	return current, nil
}

func runSize(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "size")
	symbol := fs.String("symbol", "", "Symbol to size (required)")
	equity := fs.Float64("equity", 0, "Account equity (required)")
	atr := fs.Float64("atr", 0, "Current ATR of the symbol (required unless -candles)")
	sector := fs.String("sector", "", "Sector for the sector heat limit")
	strategy := fs.String("strategy", risk.DefaultStrategy, "Strategy name for the circuit breaker")
	useKelly := fs.Bool("kelly", false, "Use Kelly risk when the statistics show an edge")
	kf := registerKellyFlags(fs)
	cf := registerCandleFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *symbol == "" {
		return fmt.Errorf("size: -symbol is required")
	}
	sym := strings.ToUpper(*symbol)

	currentATR, err := cf.resolveATR(ctx, a, sym, *atr)
	if err != nil {
		return fmt.Errorf("size: %w", err)
	}

	req := risk.SizingRequest{
		Equity:   *equity,
		Symbol:   sym,
		ATR:      currentATR,
		Sector:   *sector,
		Strategy: *strategy,
		UseKelly: *useKelly,
	}
	if *useKelly && kf.supplied(fs) {
		in := kf.inputs()
		req.Kelly = &in
	}

	result := a.engine.CalculatePositionSize(ctx, req)
	a.reporter.PrintSizing(req.Symbol, result)
	return nil
}

func runKelly(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "kelly")
	symbol := fs.String("symbol", "", "Symbol whose ATR history ranks volatility")
	atr := fs.Float64("atr", 0, "Current ATR of the symbol (required unless -candles)")
	kf := registerKellyFlags(fs)
	cf := registerCandleFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	sym := strings.ToUpper(*symbol)
	currentATR, err := cf.resolveATR(ctx, a, sym, *atr)
	if err != nil {
		return fmt.Errorf("kelly: %w", err)
	}
	est := a.engine.GetKellyFraction(ctx, kf.inputs(), currentATR, sym)
	a.reporter.PrintKelly(sym, est)
	return nil
}

func runHeat(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "heat")
	equity := fs.Float64("equity", 0, "Account equity (required)")
	newRisk := fs.Float64("risk", 0, "New position risk as a fraction of equity")
	riskAmount := fs.Float64("risk-amount", 0, "New position risk in account currency, converted with -equity")
	symbol := fs.String("symbol", "", "Symbol of the new position")
	sector := fs.String("sector", "", "Sector of the new position")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.engine.SetEquity(*equity); err != nil {
		return err
	}

	fraction := *newRisk
	if *riskAmount > 0 {
		fraction = *riskAmount / *equity
	}
	a.reporter.PrintHeat(a.engine.CheckPortfolioHeat(risk.HeatRequest{
		NewPositionRisk: fraction,
		Symbol:          strings.ToUpper(*symbol),
		Sector:          *sector,
	}))
	return nil
}

func runBreaker(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "breaker")
	strategy := fs.String("strategy", risk.DefaultStrategy, "Strategy name")
	result := fs.String("result", "", "Record a trade outcome first: win or loss")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var outcome *risk.TradeResult
	switch strings.ToLower(*result) {
	case "":
	case "win":
		r := risk.TradeWin
		outcome = &r
	case "loss":
		r := risk.TradeLoss
		outcome = &r
	default:
		return fmt.Errorf("breaker: -result must be win or loss, got %q", *result)
	}

	before := a.engine.CheckCircuitBreaker(ctx, *strategy, nil)
	after := before
	if outcome != nil {
		after = a.engine.CheckCircuitBreaker(ctx, *strategy, outcome)
	}
	a.reporter.PrintBreaker(after)
	a.alertOnPause(ctx, before, after)
	return nil
}

func runOpen(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "open")
	symbol := fs.String("symbol", "", "Symbol (required)")
	size := fs.Float64("size", 0, "Position size in units (required)")
	entry := fs.Float64("entry", 0, "Entry price (required)")
	stop := fs.Float64("stop", 0, "Stop loss; above entry registers a short (required)")
	sector := fs.String("sector", "", "Sector")
	strategy := fs.String("strategy", risk.DefaultStrategy, "Strategy name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.engine.RegisterPosition(ctx, risk.PositionRequest{
		Symbol:     strings.ToUpper(*symbol),
		Size:       *size,
		EntryPrice: *entry,
		StopLoss:   *stop,
		Sector:     *sector,
		Strategy:   *strategy,
	})
	if err != nil {
		return err
	}

	p := res.Position
	fmt.Fprintf(a.stdout, "✅ Registered %s %s size=%.8f entry=%.4f stop=%.4f risk=$%.2f (id %s)\n",
		p.Side, p.Symbol, p.Size, p.EntryPrice, p.StopLoss, p.RiskAmount, p.ID)
	if res.Replaced != nil {
		fmt.Fprintf(a.stdout, "⚠️  Replaced previous %s position %s\n", res.Replaced.Symbol, res.Replaced.ID)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(a.stdout, "⚠️  %s\n", w)
	}
	return nil
}

func runClose(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "close")
	symbol := fs.String("symbol", "", "Symbol (required)")
	exit := fs.Float64("exit", 0, "Exit price (required)")
	strategy := fs.String("strategy", "", "Strategy to charge the outcome to (defaults to the position's)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sym := strings.ToUpper(*symbol)
	charged := *strategy
	if charged == "" {
		for _, p := range a.engine.OpenPositions() {
			if p.Symbol == sym {
				charged = p.Strategy
			}
		}
	}
	before := a.engine.CheckCircuitBreaker(ctx, charged, nil)

	summary, err := a.engine.ClosePosition(ctx, sym, *exit, *strategy)
	if err != nil {
		return err
	}
	a.reporter.PrintClose(summary)
	a.alertOnPause(ctx, before, summary.Breaker)
	return nil
}

func runSummary(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "summary")
	equity := fs.Float64("equity", 0, "Account equity for heat figures")
	xlsxPath := fs.String("xlsx", "", "Export the summary workbook to this path ('auto' for results/<account>/)")
	csvPath := fs.String("csv", "", "Export open positions as CSV")
	jsonPath := fs.String("json", "", "Export the summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *equity > 0 {
		if err := a.engine.SetEquity(*equity); err != nil {
			return err
		}
	}

	summary := a.engine.GetRiskSummary()
	a.reporter.PrintSummary(summary)

	if *xlsxPath != "" {
		path := *xlsxPath
		if path == "auto" {
			path = filepath.Join(a.reporter.GetDefaultOutputDir(a.cfg.Account), "risk_summary.xlsx")
		}
		if err := a.reporter.WriteSummaryXLSX(summary, path); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(a.stdout, "📊 Workbook written to %s\n", path)
	}
	if *csvPath != "" {
		if err := a.reporter.WritePositionsCSV(summary.Positions, *csvPath); err != nil {
			return fmt.Errorf("failed to write %s: %w", *csvPath, err)
		}
		fmt.Fprintf(a.stdout, "📄 Positions written to %s\n", *csvPath)
	}
	if *jsonPath != "" {
		if err := a.reporter.WriteSummaryJSON(summary, *jsonPath); err != nil {
			return fmt.Errorf("failed to write %s: %w", *jsonPath, err)
		}
		fmt.Fprintf(a.stdout, "📄 Summary written to %s\n", *jsonPath)
	}
	return nil
}
