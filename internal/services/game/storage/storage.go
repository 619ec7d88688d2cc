package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = errors.New("record not found")

// ErrIntegrity indicates a stored log whose hash chain or signatures do not
// verify.
var ErrIntegrity = errors.New("log integrity check failed")

// LogStore is a durable replication log.
type LogStore interface {
	journal.Log
	// SessionID identifies the session whose entries the log holds. It scopes
	// entry signatures.
	SessionID() string
	// VerifyIntegrity walks the whole log and returns the last verified
	// sequence number.
	VerifyIntegrity(ctx context.Context) (uint64, error)
	Close() error
}

// AuditEvent captures a security or integrity relevant outcome.
type AuditEvent struct {
	ID             int64
	Timestamp      time.Time
	EventName      string
	Severity       string
	SessionID      string
	ActorID        string
	RequestID      string
	TraceID        string
	SpanID         string
	Attributes     map[string]any
	AttributesJSON []byte
}

// AuditEventStore persists audit events.
type AuditEventStore interface {
	AppendAuditEvent(ctx context.Context, evt AuditEvent) error
}

// AuditEventFilter narrows ListAuditEvents. Zero values match everything.
type AuditEventFilter struct {
	EventName string
	Since     time.Time
	Limit     int
}

// AuditEventLister reads audit events back, oldest first.
type AuditEventLister interface {
	ListAuditEvents(ctx context.Context, filter AuditEventFilter) ([]AuditEvent, error)
}
