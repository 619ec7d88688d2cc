package checkpoint

import "context"

// Noop never keeps checkpoints, so rollback is never possible.
type Noop struct{}

// NewNoop creates a checkpoint store that never stores anything.
func NewNoop() *Noop {
	return &Noop{}
}

// Save is a no-op.
func (n *Noop) Save(ctx context.Context, _ Checkpoint) error {
	return ctx.Err()
}

// Latest always reports that no checkpoint exists.
func (n *Noop) Latest(ctx context.Context) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	return Checkpoint{}, ErrNotFound
}
