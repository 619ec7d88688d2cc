// Package events defines canonical game audit event names.
package events

const (
	// CommandForbidden captures a command rejected by the permission gate.
	CommandForbidden = "command.forbidden"
	// CommandDecodeFailed captures a frame that could not be decoded.
	CommandDecodeFailed = "command.decode_failed"
	// InvariantViolated captures an apply that failed after validate passed or
	// a replica that diverged.
	InvariantViolated = "session.invariant_violated"
	// SessionFaulted captures a participant disconnected by the authority.
	SessionFaulted = "session.faulted"
	// SessionEnded captures a replication stream closing for any reason.
	SessionEnded = "session.ended"
	// PolicyReloaded captures a permission policy swap.
	PolicyReloaded = "authz.policy_reloaded"
	// PolicyReloadFailed captures a policy file that was rejected while the
	// previous policy stayed active.
	PolicyReloadFailed = "authz.policy_reload_failed"
)
