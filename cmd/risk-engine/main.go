package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ducminhle1904/crypto-risk-engine/cmd/common"
	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"size":    {"size a new position through the breaker, Kelly and heat gates", runSize},
	"kelly":   {"estimate a volatility-adjusted Kelly fraction", runKelly},
	"heat":    {"check a prospective position against the heat limits", runHeat},
	"breaker": {"show or update a strategy's circuit breaker", runBreaker},
	"open":    {"register an opened position", runOpen},
	"close":   {"close a position and feed the outcome to its breaker", runClose},
	"summary": {"print the risk summary, optionally exporting xlsx/csv/json", runSummary},
	"serve":   {"serve /metrics, /health and /summary over HTTP", runServe},
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("risk-engine", flag.ContinueOnError)
	global.SetOutput(stderr)
	envFile := global.String("env", ".env", "Environment file path")
	statePath := global.String("state", "", "State file path (overrides RISK_STATE_PATH)")
	logDir := global.String("log-dir", "", "Log directory (overrides RISK_LOG_DIR, 'none' disables file logs)")
	showVersion := global.Bool("version", false, "Show version information")
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, common.GetVersionInfo())
		return 0
	}

	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr, global)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "❌ unknown command %q\n\n", rest[0])
		printUsage(stderr, global)
		return 2
	}

	loader := common.NewEnvLoader(func(format string, args ...interface{}) {
		fmt.Fprintf(stderr, "⚠️  "+format+"\n", args...)
	})
	if err := loader.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	cfg := config.Load()
	if *statePath != "" {
		cfg.StatePath = *statePath
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}

	a, err := newApp(ctx, cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	defer a.Close()

	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: risk-engine [global flags] <command> [flags]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(w, "\nGlobal flags:\n")
	global.SetOutput(w)
	global.PrintDefaults()
}
