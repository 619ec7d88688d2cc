package engine

import (
	"fmt"
	"sync"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/replay"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const defaultReorderLimit = 4096

// Replica reproduces the authority's world from published entries. It never
// validates, applies strictly in sequence order and does not move past a tick
// until every entry sequenced in it has been applied.
type Replica struct {
	registry     *command.Registry
	reorderLimit int

	mu      sync.Mutex
	state   *world.State
	lastSeq uint64
	pending map[uint64]journal.Entry
	effects []world.Effect
}

// NewReplica builds a replica with an empty world. Call Reset with the join
// snapshot before receiving entries.
func NewReplica(registry *command.Registry, reorderLimit int) *Replica {
	if reorderLimit <= 0 {
		reorderLimit = defaultReorderLimit
	}
	return &Replica{
		registry:     registry,
		reorderLimit: reorderLimit,
		state:        world.NewState(world.Options{}),
		pending:      make(map[uint64]journal.Entry),
	}
}

// Reset replaces the world with a snapshot that includes every entry up to
// lastSeq.
func (r *Replica) Reset(state *world.State, lastSeq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.lastSeq = lastSeq
	clear(r.pending)
	r.effects = nil
}

// Receive accepts an entry in any order. Entries already applied are
// ignored; the rest wait until their predecessors and their tick arrive.
func (r *Replica) Receive(e journal.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Seq <= r.lastSeq {
		return nil
	}
	if _, ok := r.pending[e.Seq]; !ok && len(r.pending) >= r.reorderLimit {
		return fmt.Errorf("%w: %d entries waiting", ErrReorderOverflow, len(r.pending))
	}
	r.pending[e.Seq] = e
	return r.drain()
}

// AdvanceTick closes the replica's current tick against the authority's
// mark. It returns ErrTickNotReady while entries of the tick are missing and
// an InvariantError when the worlds differ.
func (r *Replica) AdvanceTick(mark journal.TickMark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mark.Tick != r.state.Tick() {
		return fmt.Errorf("%w: mark %d replica %d", ErrTickOutOfOrder, mark.Tick, r.state.Tick())
	}
	if err := r.drain(); err != nil {
		return err
	}
	if r.lastSeq < mark.LastSeq {
		return fmt.Errorf("%w: applied %d of %d", ErrTickNotReady, r.lastSeq, mark.LastSeq)
	}

	r.state.ClearGhosts()
	sum, err := r.state.Checksum()
	if err != nil {
		return fmt.Errorf("checksum: %w", err)
	}
	if sum != mark.Checksum {
		return &command.InvariantError{
			Seq:    mark.LastSeq,
			Status: command.StatusInternal,
			Err:    fmt.Errorf("%w at tick %d", ErrChecksumMismatch, mark.Tick),
		}
	}
	r.state.AdvanceTick()
	return r.drain()
}

// drain applies contiguous entries that belong to the current tick.
func (r *Replica) drain() error {
	for {
		next, ok := r.pending[r.lastSeq+1]
		if !ok || next.Tick > r.state.Tick() {
			return nil
		}
		if err := replay.ApplyEntry(r.registry, r.state, next); err != nil {
			return err
		}
		delete(r.pending, next.Seq)
		r.lastSeq = next.Seq
		r.effects = append(r.effects, r.state.DrainEffects()...)
	}
}

// LastSeq returns the last applied sequence number.
func (r *Replica) LastSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeq
}

// Tick returns the replica's current tick.
func (r *Replica) Tick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Tick()
}

// Checksum returns the digest of the replica's durable world.
func (r *Replica) Checksum() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Checksum()
}

// DrainEffects returns presentation effects of the entries applied since the
// last call.
func (r *Replica) DrainEffects() []world.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.effects
	r.effects = nil
	return out
}

// View calls fn with the replica's world between applies. fn must not keep
// the view.
func (r *Replica) View(fn func(world.View)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.state)
}
