// Package errors provides structured session errors with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code. Every code has a message in the
// "errors" catalog namespace.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Identity errors
	CodePlayerIDRequired Code = "PLAYER_ID_REQUIRED"
	CodePlayerIDInvalid  Code = "PLAYER_ID_INVALID"

	// Session errors
	CodeSessionDesync       Code = "SESSION_DESYNC"
	CodeSessionSlowConsumer Code = "SESSION_SLOW_CONSUMER"
	CodeSessionClosed       Code = "SESSION_CLOSED"

	// Transport errors
	CodeFrameMalformed Code = "FRAME_MALFORMED"
	CodeTooManyPending Code = "TOO_MANY_PENDING"
)

// GRPCCode maps codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodePlayerIDRequired:
		return codes.Unauthenticated
	case CodePlayerIDInvalid, CodeFrameMalformed:
		return codes.InvalidArgument
	case CodeSessionDesync:
		return codes.DataLoss
	case CodeSessionSlowConsumer, CodeTooManyPending:
		return codes.ResourceExhausted
	case CodeSessionClosed:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
