package audit

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/parkline/internal/services/game/observability/audit/metrics"
	"github.com/louisbranch/parkline/internal/services/game/storage"
)

// Severity describes the audit severity level.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Emitter records operational audit events.
type Emitter struct {
	store    storage.AuditEventStore
	clock    func() time.Time
	recorder *metrics.Recorder
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithRecorder counts every write.
func WithRecorder(recorder *metrics.Recorder) EmitterOption {
	return func(e *Emitter) {
		e.recorder = recorder
	}
}

// NewEmitter creates a new audit event emitter.
func NewEmitter(store storage.AuditEventStore, opts ...EmitterOption) *Emitter {
	e := &Emitter{store: store, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Emit records an audit event, stamping the time and the active span. It is a
// no-op when the store is nil.
func (e *Emitter) Emit(ctx context.Context, evt storage.AuditEvent) error {
	if e == nil || e.store == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		if evt.TraceID == "" {
			evt.TraceID = sc.TraceID().String()
		}
		if evt.SpanID == "" {
			evt.SpanID = sc.SpanID().String()
		}
	}
	err := e.store.AppendAuditEvent(ctx, evt)
	e.recorder.Record(ctx, evt.EventName, err)
	return err
}
