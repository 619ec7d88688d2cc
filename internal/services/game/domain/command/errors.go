package command

import (
	"errors"
	"fmt"

	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

var (
	// ErrTypeUnknown indicates an unregistered command type.
	ErrTypeUnknown = errors.New("command type is not registered")
	// ErrVersionUnsupported indicates a frame written by an unknown wire version.
	ErrVersionUnsupported = errors.New("wire version is not supported")
	// ErrFrameTruncated indicates a frame too short to carry a type id.
	ErrFrameTruncated = errors.New("frame is truncated")
)

// DecodeError reports a malformed or unknown serialized command. It is fatal
// to that command only.
type DecodeError struct {
	Type Type
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode command %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err carries a DecodeError.
func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}

// InvariantError reports a broken execution invariant: apply failing after
// validate succeeded, or participants disagreeing about an outcome. It faults
// the session.
type InvariantError struct {
	Seq       uint64
	Type      Type
	Issuer    world.PlayerID
	RequestID uint32
	Status    Status
	Frame     []byte
	Err       error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation at seq %d (type %s issuer %d request %d status %s): %v",
		e.Seq, e.Type, e.Issuer, e.RequestID, e.Status, e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

// IsInvariantViolation reports whether err carries an InvariantError.
func IsInvariantViolation(err error) bool {
	var target *InvariantError
	return errors.As(err, &target)
}
