package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the process-level configuration of the risk engine CLI
type Config struct {
	Environment string
	Account     string

	StatePath   string
	LogDir      string
	MetricsAddr string

	// Optional Telegram alerts when a strategy's breaker pauses
	TelegramToken  string
	TelegramChatID string

	Risk RiskConfig
}

// Load builds the configuration from environment variables, falling back
// to DefaultRiskConfig for anything unset.
func Load() *Config {
	defaults := DefaultRiskConfig()

	return &Config{
		Environment: getEnv("ENV", "development"),
		Account:     getEnv("RISK_ACCOUNT", "default"),
		StatePath:   getEnv("RISK_STATE_PATH", DefaultStatePath()),
		LogDir:      getEnv("RISK_LOG_DIR", "logs"),
		MetricsAddr: getEnv("RISK_METRICS_ADDR", ":9100"),

		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),

		Risk: RiskConfig{
			DefaultRiskPct:   getEnvFloat("RISK_DEFAULT_PCT", defaults.DefaultRiskPct),
			ATRMultiplier:    getEnvFloat("RISK_ATR_MULTIPLIER", defaults.ATRMultiplier),
			MaxPositionSize:  getEnvFloat("RISK_MAX_POSITION_SIZE", defaults.MaxPositionSize),
			MaxPortfolioHeat: getEnvFloat("RISK_MAX_PORTFOLIO_HEAT", defaults.MaxPortfolioHeat),
			MaxPositionHeat:  getEnvFloat("RISK_MAX_POSITION_HEAT", defaults.MaxPositionHeat),
			MaxSectorHeat:    getEnvFloat("RISK_MAX_SECTOR_HEAT", defaults.MaxSectorHeat),
			KellyMaxFraction: getEnvFloat("RISK_KELLY_MAX_FRACTION", defaults.KellyMaxFraction),
			ReducedThreshold: getEnvInt("RISK_REDUCED_THRESHOLD", defaults.ReducedThreshold),
			PausedThreshold:  getEnvInt("RISK_PAUSED_THRESHOLD", defaults.PausedThreshold),
			PauseDuration:    getEnvDuration("RISK_PAUSE_DURATION", defaults.PauseDuration),
			ReducedRiskScale: getEnvFloat("RISK_REDUCED_SCALE", defaults.ReducedRiskScale),
			ATRHistoryLimit:  getEnvInt("RISK_ATR_HISTORY_LIMIT", defaults.ATRHistoryLimit),
			ATRMinSamples:    getEnvInt("RISK_ATR_MIN_SAMPLES", defaults.ATRMinSamples),
			SaveRetries:      getEnvInt("RISK_SAVE_RETRIES", defaults.SaveRetries),
		},
	}
}

// DefaultStatePath returns the dotfile under the user's home directory,
// or a file in the working directory when the home directory is unknown.
func DefaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".risk_engine_state.json"
	}
	return filepath.Join(home, ".risk_engine_state.json")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
