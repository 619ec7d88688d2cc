package engine

import (
	"errors"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
)

var (
	// ErrQueueFull indicates the inbound queue is saturated.
	ErrQueueFull = errors.New("command queue is full")
	// ErrIssuerLimit indicates one issuer has too many queued commands.
	ErrIssuerLimit = errors.New("too many pending commands for issuer")
	// ErrTickNotReady indicates a tick mark arrived before its entries.
	ErrTickNotReady = errors.New("tick entries not yet applied")
	// ErrTickOutOfOrder indicates a tick mark for a tick other than the
	// replica's current one.
	ErrTickOutOfOrder = errors.New("tick mark out of order")
	// ErrChecksumMismatch indicates the replica world differs from the
	// authority's after a tick.
	ErrChecksumMismatch = errors.New("world checksum mismatch")
	// ErrReorderOverflow indicates too many out-of-order entries.
	ErrReorderOverflow = errors.New("reorder buffer overflow")
)

// fatalError marks an error that ends the session: the world can no longer
// be trusted and must not keep running.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return "fatal: " + e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }
func (e *fatalError) Fatal() bool   { return true }

func wrapFatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err (or any error in its chain) ends the session.
func IsFatal(err error) bool {
	var target interface{ Fatal() bool }
	if errors.As(err, &target) {
		return target.Fatal()
	}
	return false
}

// IsDesync reports whether err means participants no longer agree on the
// world.
func IsDesync(err error) bool {
	return command.IsInvariantViolation(err)
}
