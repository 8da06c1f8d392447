package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvLoader loads .env files and checks required variables
type EnvLoader struct {
	warn func(format string, args ...interface{})
}

// NewEnvLoader creates an env loader. warn may be nil.
func NewEnvLoader(warn func(format string, args ...interface{})) *EnvLoader {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	return &EnvLoader{warn: warn}
}

// LoadEnvFile loads path into the process environment. A missing file is
// not an error; variables already set are never overwritten.
func (e *EnvLoader) LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		e.warn("Environment file %s not found, using process environment", path)
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load environment file %s: %w", path, err)
	}
	return nil
}

// GetEnvWithDefault returns the variable or defaultValue when unset
func (e *EnvLoader) GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ValidateRequiredEnvVars fails listing every unset key
func (e *EnvLoader) ValidateRequiredEnvVars(keys []string) error {
	var missing []string
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
