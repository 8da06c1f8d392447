package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
	"github.com/ducminhle1904/crypto-risk-engine/internal/logger"
	"github.com/ducminhle1904/crypto-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-risk-engine/internal/notifications"
	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
	"github.com/ducminhle1904/crypto-risk-engine/internal/state"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/reporting"
)

// app wires config, logging, persistence and the engine for one CLI run
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	engine   *risk.Engine
	health   *monitoring.HealthChecker
	reporter *reporting.DefaultReporter
	notifier notifications.Notifier
	stdout   io.Writer
	stderr   io.Writer
}

func newApp(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*app, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	if path := log.GetLogPath(); path != "" {
		fmt.Fprintf(stderr, "📝 Logging to %s\n", path)
	}

	store := state.NewFileStore(cfg.StatePath,
		state.WithAttempts(cfg.Risk.SaveRetries),
		state.WithLogger(log),
	)
	health := monitoring.NewHealthChecker()

	engine, err := risk.NewEngine(cfg.Risk,
		risk.WithStore(store),
		risk.WithLogger(log),
		risk.WithHealthChecker(health),
	)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("invalid risk configuration: %w", err)
	}

	warnings, err := engine.LoadState(ctx)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to load state from %s: %w", cfg.StatePath, err)
	}
	for _, w := range warnings {
		fmt.Fprintf(stderr, "⚠️  state: %s\n", w)
	}

	return &app{
		cfg:      cfg,
		logger:   log,
		engine:   engine,
		health:   health,
		reporter: reporting.NewDefaultReporter().WithConsole(reporting.NewConsoleReporterTo(stdout)),
		notifier: newNotifier(cfg),
		stdout:   stdout,
		stderr:   stderr,
	}, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.LogDir == "" || strings.EqualFold(cfg.LogDir, "none") {
		return logger.NewWriterLogger("risk_engine", io.Discard), nil
	}
	return logger.NewLogger("risk_engine_"+cfg.Account, cfg.LogDir)
}

func newNotifier(cfg *config.Config) notifications.Notifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == "" {
		return notifications.NopNotifier{}
	}
	return notifications.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
}

// alertOnPause notifies when an update moved a strategy into PAUSED.
// Delivery failures are logged and never fail the command.
func (a *app) alertOnPause(ctx context.Context, before, after risk.CircuitBreakerStatus) {
	if after.State != risk.BreakerPaused || before.State == risk.BreakerPaused {
		return
	}
	until := "unknown"
	if after.PausedUntil != nil {
		until = after.PausedUntil.Format(time.RFC3339)
	}
	msg := fmt.Sprintf("Strategy *%s* paused after %d consecutive losses until %s",
		after.Strategy, after.ConsecutiveLosses, until)
	if err := a.notifier.SendAlert(ctx, notifications.LevelWarning, msg); err != nil {
		a.logger.LogWarning("alert", "failed to send pause alert: %v", err)
	}
}

func (a *app) Close() {
	a.logger.Close()
}
