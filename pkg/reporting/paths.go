package reporting

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns results/<account>, lower-cased
func (p *DefaultPathManager) GetDefaultOutputDir(account string) string {
	a := strings.ToLower(strings.TrimSpace(account))
	if a == "" {
		a = "default"
	}
	return filepath.Join("results", a)
}

// EnsureDirectoryExists creates the parent directory of path if needed
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// DefaultOutputDir is a convenience wrapper around DefaultPathManager
func DefaultOutputDir(account string) string {
	return NewDefaultPathManager().GetDefaultOutputDir(account)
}
