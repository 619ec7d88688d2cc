package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const defaultPageSize = 200

var (
	// ErrLogRequired indicates a missing log.
	ErrLogRequired = errors.New("log is required")
	// ErrRegistryRequired indicates a missing command registry.
	ErrRegistryRequired = errors.New("registry is required")
	// ErrStateRequired indicates a missing world state.
	ErrStateRequired = errors.New("world state is required")
	// ErrStatusMismatch indicates a replayed command produced a different
	// status than the authority published.
	ErrStatusMismatch = errors.New("replayed status differs from published status")
	// ErrTickRegressed indicates an entry older than the world's tick.
	ErrTickRegressed = errors.New("entry tick is behind the world")
)

// Options configures replay behavior.
type Options struct {
	AfterSeq uint64
	UntilSeq uint64
	PageSize int
}

// Result captures replay outcomes.
type Result struct {
	LastSeq uint64
	Applied int
}

// ApplyEntry applies one published entry to state without validating it.
// The world clock is advanced to the entry's tick first. Any disagreement
// with the published outcome is an invariant violation.
func ApplyEntry(registry *command.Registry, state *world.State, e journal.Entry) error {
	if registry == nil {
		return ErrRegistryRequired
	}
	if state == nil {
		return ErrStateRequired
	}
	violation := func(status command.Status, err error) error {
		return &command.InvariantError{
			Seq:       e.Seq,
			Type:      e.Type,
			Issuer:    e.Issuer,
			RequestID: e.RequestID,
			Status:    status,
			Frame:     e.Frame,
			Err:       err,
		}
	}

	if e.Tick < state.Tick() {
		return violation(command.StatusInternal, fmt.Errorf("%w: entry %d world %d", ErrTickRegressed, e.Tick, state.Tick()))
	}
	for state.Tick() < e.Tick {
		state.AdvanceTick()
	}

	env, err := registry.Decode(e.Frame)
	if err != nil {
		return violation(command.StatusDecodeError, err)
	}
	want, err := e.DecodeResult()
	if err != nil {
		return violation(command.StatusDecodeError, fmt.Errorf("decode result: %w", err))
	}
	got := env.Command.Apply(state, command.NewContext(env, e.Tick))
	if got.Status != want.Status {
		return violation(got.Status, fmt.Errorf("%w: got %s want %s", ErrStatusMismatch, got.Status, want.Status))
	}
	return nil
}

// Replay applies logged entries after opts.AfterSeq in order. Presentation
// effects are discarded.
func Replay(ctx context.Context, log journal.Log, registry *command.Registry, state *world.State, opts Options) (Result, error) {
	if log == nil {
		return Result{}, ErrLogRequired
	}
	if registry == nil {
		return Result{}, ErrRegistryRequired
	}
	if state == nil {
		return Result{}, ErrStateRequired
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result{LastSeq: opts.AfterSeq}
	for {
		entries, err := log.List(ctx, result.LastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(entries) == 0 {
			return result, nil
		}
		for _, e := range entries {
			if opts.UntilSeq > 0 && e.Seq > opts.UntilSeq {
				return result, nil
			}
			expectedSeq := result.LastSeq + 1
			if e.Seq != expectedSeq {
				return result, fmt.Errorf("entry sequence gap: expected %d got %d", expectedSeq, e.Seq)
			}
			if err := ApplyEntry(registry, state, e); err != nil {
				return result, err
			}
			state.DrainEffects()
			result.LastSeq = e.Seq
			result.Applied++
		}
	}
}
