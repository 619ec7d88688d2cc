package config

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
)

// Exit codes shared by the parkline binaries.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// ExitCode maps an error returned by a command to its process exit code.
// Help requests exit cleanly and an interrupted context reports 130.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case isUsage(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// UsageError marks a failure caused by invalid flags or arguments.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func isUsage(err error) bool {
	var usage *UsageError
	return errors.As(err, &usage)
}

// Exit prints err to stderr with prefix and exits with ExitCode(err). It
// returns without exiting when err is nil.
func Exit(prefix string, err error) {
	if err == nil {
		return
	}
	code := ExitCode(err)
	if code != ExitOK {
		fmt.Fprintf(os.Stderr, "%s%v\n", prefix, err)
	}
	os.Exit(code)
}
