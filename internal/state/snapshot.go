package state

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// SchemaVersion is written into every snapshot
const SchemaVersion = "1.0"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the complete recoverable state of one risk engine
type Snapshot struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`

	OpenPositions    map[string]*PositionSnapshot `json:"open_positions"`
	LossStreaks      map[string][]time.Time       `json:"loss_streaks"`
	PausedStrategies map[string]time.Time         `json:"paused_strategies"`
	ATRHistory       map[string][]float64         `json:"atr_history"`
}

// PositionSnapshot is the persisted form of an open position
type PositionSnapshot struct {
	ID         string    `json:"id,omitempty"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	Sector     string    `json:"sector,omitempty"`
	Strategy   string    `json:"strategy"`
	RiskAmount float64   `json:"risk_amount"`
	OpenedAt   time.Time `json:"opened_at"`
}

// NewSnapshot creates an empty snapshot with initialized maps
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:          SchemaVersion,
		OpenPositions:    make(map[string]*PositionSnapshot),
		LossStreaks:      make(map[string][]time.Time),
		PausedStrategies: make(map[string]time.Time),
		ATRHistory:       make(map[string][]float64),
	}
}

// LoadResult carries a loaded snapshot plus anything worth warning about
type LoadResult struct {
	Snapshot *Snapshot
	Found    bool
	Warnings []string
}

// Store persists snapshots. Save is all-or-nothing.
type Store interface {
	Load(ctx context.Context) (LoadResult, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Encode serializes a snapshot as indented JSON
func Encode(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("cannot encode nil snapshot")
	}
	return json.MarshalIndent(snap, "", "  ")
}

// Decode parses a snapshot field by field. A field that fails to decode is
// skipped with a warning instead of discarding the whole document, and a
// schema version mismatch is reported but still loaded on a best-effort basis.
func Decode(data []byte) (*Snapshot, []string, error) {
	var fields map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, fmt.Errorf("failed to parse state document: %w", err)
	}

	snap := NewSnapshot()
	snap.Version = ""
	var warnings []string

	decodeField := func(name string, target interface{}) {
		raw, ok := fields[name]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			return
		}
		if err := json.Unmarshal(raw, target); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping unreadable field %q: %v", name, err))
		}
	}

	decodeField("version", &snap.Version)
	decodeField("last_updated", &snap.LastUpdated)
	decodeField("open_positions", &snap.OpenPositions)
	decodeField("loss_streaks", &snap.LossStreaks)
	decodeField("paused_strategies", &snap.PausedStrategies)
	decodeField("atr_history", &snap.ATRHistory)

	if snap.Version != SchemaVersion {
		warnings = append(warnings, fmt.Sprintf("state schema version %q differs from %q, loaded best-effort", snap.Version, SchemaVersion))
	}

	// a field decoded as an explicit null map leaves the target nil
	if snap.OpenPositions == nil {
		snap.OpenPositions = make(map[string]*PositionSnapshot)
	}
	if snap.LossStreaks == nil {
		snap.LossStreaks = make(map[string][]time.Time)
	}
	if snap.PausedStrategies == nil {
		snap.PausedStrategies = make(map[string]time.Time)
	}
	if snap.ATRHistory == nil {
		snap.ATRHistory = make(map[string][]float64)
	}

	return snap, warnings, nil
}
