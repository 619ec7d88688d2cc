package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrSeqGap indicates an append that does not follow the last entry.
	ErrSeqGap = errors.New("entry sequence gap")
	// ErrLogRequired indicates a missing log.
	ErrLogRequired = errors.New("log is required")
)

// Log stores published entries in sequence order.
type Log interface {
	// Append seals and stores e. e.Seq must be the last sequence plus one.
	Append(ctx context.Context, e Entry) (Entry, error)
	// List returns up to limit entries with Seq > afterSeq.
	List(ctx context.Context, afterSeq uint64, limit int) ([]Entry, error)
	LastSeq(ctx context.Context) (uint64, error)
}

// Memory is an in-memory Log.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Append(ctx context.Context, e Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if m == nil {
		return Entry{}, ErrLogRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prevHash := ""
	last := uint64(0)
	if n := len(m.entries); n > 0 {
		prevHash = m.entries[n-1].ChainHash
		last = m.entries[n-1].Seq
	}
	if e.Seq != last+1 {
		return Entry{}, fmt.Errorf("%w: expected %d got %d", ErrSeqGap, last+1, e.Seq)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = m.now()
	}
	sealed, err := Seal(e, prevHash)
	if err != nil {
		return Entry{}, err
	}
	m.entries = append(m.entries, sealed)
	return sealed, nil
}

func (m *Memory) List(ctx context.Context, afterSeq uint64, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrLogRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Sequences are contiguous from 1, so afterSeq is also an index.
	if afterSeq >= uint64(len(m.entries)) {
		return nil, nil
	}
	page := m.entries[afterSeq:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	out := make([]Entry, len(page))
	copy(out, page)
	return out, nil
}

func (m *Memory) LastSeq(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if m == nil {
		return 0, ErrLogRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.entries)), nil
}

var _ Log = (*Memory)(nil)
