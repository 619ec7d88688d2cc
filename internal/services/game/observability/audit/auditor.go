package audit

import (
	"context"
	"encoding/hex"
	"log"
	"strconv"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
	"github.com/louisbranch/parkline/internal/services/game/observability/audit/events"
	"github.com/louisbranch/parkline/internal/services/game/storage"
)

// Auditor turns dispatcher outcomes into audit events for one session.
// Write failures are logged; they never affect command processing.
type Auditor struct {
	emitter   *Emitter
	sessionID string
}

// NewAuditor builds an auditor writing through emitter.
func NewAuditor(emitter *Emitter, sessionID string) *Auditor {
	return &Auditor{emitter: emitter, sessionID: sessionID}
}

// Forbidden records a command rejected by the permission gate.
func (a *Auditor) Forbidden(ctx context.Context, env command.Envelope) {
	a.emit(ctx, storage.AuditEvent{
		EventName: events.CommandForbidden,
		Severity:  string(SeverityWarn),
		ActorID:   playerID(env.Header.Issuer),
		RequestID: strconv.FormatUint(uint64(env.Header.RequestID), 10),
		Attributes: map[string]any{
			"command_type":        env.Command.Type().String(),
			"required_capability": env.Command.Capability().String(),
		},
	})
}

// DecodeFailed records a frame that did not decode.
func (a *Auditor) DecodeFailed(ctx context.Context, issuer world.PlayerID, err error) {
	a.emit(ctx, storage.AuditEvent{
		EventName:  events.CommandDecodeFailed,
		Severity:   string(SeverityWarn),
		ActorID:    playerID(issuer),
		Attributes: map[string]any{"error": err.Error()},
	})
}

// InvariantViolated records a broken execution invariant with enough context
// to reproduce it.
func (a *Auditor) InvariantViolated(ctx context.Context, err *command.InvariantError) {
	a.emit(ctx, storage.AuditEvent{
		EventName: events.InvariantViolated,
		Severity:  string(SeverityError),
		ActorID:   playerID(err.Issuer),
		RequestID: strconv.FormatUint(uint64(err.RequestID), 10),
		Attributes: map[string]any{
			"seq":          err.Seq,
			"command_type": err.Type.String(),
			"status":       err.Status.String(),
			"frame":        hex.EncodeToString(err.Frame),
			"error":        err.Error(),
		},
	})
}

// SessionFaulted records a participant the authority disconnected.
func (a *Auditor) SessionFaulted(ctx context.Context, player world.PlayerID, reason string) {
	a.emit(ctx, storage.AuditEvent{
		EventName:  events.SessionFaulted,
		Severity:   string(SeverityWarn),
		ActorID:    playerID(player),
		Attributes: map[string]any{"reason": reason},
	})
}

// PolicyReloaded records a permission policy swap.
func (a *Auditor) PolicyReloaded(ctx context.Context, path string, groups int) {
	a.emit(ctx, storage.AuditEvent{
		EventName:  events.PolicyReloaded,
		Severity:   string(SeverityInfo),
		Attributes: map[string]any{"path": path, "groups": groups},
	})
}

// PolicyReloadFailed records a policy file that could not be loaded.
func (a *Auditor) PolicyReloadFailed(ctx context.Context, path string, err error) {
	a.emit(ctx, storage.AuditEvent{
		EventName:  events.PolicyReloadFailed,
		Severity:   string(SeverityWarn),
		Attributes: map[string]any{"path": path, "error": err.Error()},
	})
}

func (a *Auditor) emit(ctx context.Context, evt storage.AuditEvent) {
	if a == nil {
		return
	}
	evt.SessionID = a.sessionID
	if err := a.emitter.Emit(ctx, evt); err != nil {
		log.Printf("audit %s: %v", evt.EventName, err)
	}
}

func playerID(id world.PlayerID) string {
	return strconv.FormatUint(uint64(id), 10)
}
