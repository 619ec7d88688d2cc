package checkpoint

import (
	"context"
	"errors"
	"sync"
	"time"
)

const defaultRetain = 4

// Memory keeps the most recent checkpoints in memory.
type Memory struct {
	mu     sync.Mutex
	retain int
	saved  []Checkpoint
}

// NewMemory creates a store that retains up to retain checkpoints. A
// non-positive retain keeps the default.
func NewMemory(retain int) *Memory {
	if retain <= 0 {
		retain = defaultRetain
	}
	return &Memory{retain: retain}
}

// Save stores a clone of cp.State.
func (m *Memory) Save(ctx context.Context, cp Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m == nil {
		return errors.New("checkpoint store is required")
	}
	if cp.State == nil {
		return ErrStateRequired
	}
	cp.State = cp.State.Clone()
	if cp.SavedAt.IsZero() {
		cp.SavedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved = append(m.saved, cp)
	if extra := len(m.saved) - m.retain; extra > 0 {
		m.saved = append(m.saved[:0], m.saved[extra:]...)
	}
	return nil
}

// Latest returns the newest checkpoint with a cloned state.
func (m *Memory) Latest(ctx context.Context) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	if m == nil {
		return Checkpoint{}, errors.New("checkpoint store is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.saved) == 0 {
		return Checkpoint{}, ErrNotFound
	}
	cp := m.saved[len(m.saved)-1]
	cp.State = cp.State.Clone()
	return cp, nil
}

// Len reports how many checkpoints are retained.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}
