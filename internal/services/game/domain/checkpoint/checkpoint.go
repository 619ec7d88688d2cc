package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

var (
	// ErrNotFound indicates no checkpoint exists yet.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrStateRequired indicates a checkpoint without a world.
	ErrStateRequired = errors.New("checkpoint state is required")
)

// Checkpoint is a known-good world captured after entry Seq was applied.
type Checkpoint struct {
	Seq     uint64
	Tick    uint64
	State   *world.State
	SavedAt time.Time
}

// Store keeps checkpoints for rollback.
type Store interface {
	Save(ctx context.Context, cp Checkpoint) error
	// Latest returns a copy of the newest checkpoint the caller may mutate.
	Latest(ctx context.Context) (Checkpoint, error)
}
