package state

import (
	"context"
	"sync"
)

// MemoryStore keeps the encoded snapshot in memory. Used by tests and by
// engines that run without a state file.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the last saved snapshot, or returns an empty one
func (m *MemoryStore) Load(ctx context.Context) (LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return LoadResult{Snapshot: NewSnapshot()}, nil
	}
	snap, warnings, err := Decode(m.data)
	if err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Snapshot: snap, Found: true, Warnings: warnings}, nil
}

// Save encodes and keeps the snapshot
func (m *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
