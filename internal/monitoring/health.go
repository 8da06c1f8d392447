package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker reports whether the engine is deciding and persisting normally
type HealthChecker struct {
	mu           sync.RWMutex
	startTime    time.Time
	lastDecision time.Time
	lastSave     time.Time
	saveError    string
	pausedCount  int
}

type HealthStatus struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	LastDecision     time.Time `json:"last_decision"`
	LastSave         time.Time `json:"last_save"`
	PausedStrategies int       `json:"paused_strategies"`
	Uptime           string    `json:"uptime"`
	Errors           []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// Status computes the current health. A failed last save degrades health
// because in-memory state is then ahead of the state file.
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HealthStatus{
		Status:           "healthy",
		Timestamp:        time.Now(),
		LastDecision:     h.lastDecision,
		LastSave:         h.lastSave,
		PausedStrategies: h.pausedCount,
		Uptime:           time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.saveError != "" {
		status.Status = "degraded"
		status.Errors = []string{h.saveError}
	}
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

func (h *HealthChecker) RecordDecision(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastDecision = at
}

// RecordSave stores the outcome of the latest save attempt
func (h *HealthChecker) RecordSave(at time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.saveError = err.Error()
		return
	}
	h.lastSave = at
	h.saveError = ""
}

func (h *HealthChecker) SetPausedStrategies(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pausedCount = n
}
