// Package metrics counts audit writes through the OpenTelemetry meter API.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/louisbranch/parkline/internal/services/game/observability/audit"

	// AuditWritesEmittedTotal counts persisted audit events.
	AuditWritesEmittedTotal = "game_audit_writes_emitted_total"
	// AuditWriteErrorsTotal counts audit events that failed to persist.
	AuditWriteErrorsTotal = "game_audit_write_errors_total"
)

// Recorder counts audit writes by event name.
type Recorder struct {
	written metric.Int64Counter
	failed  metric.Int64Counter
}

// NewRecorder builds a recorder on meter, or on the global provider when
// meter is nil.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	written, err := meter.Int64Counter(AuditWritesEmittedTotal, metric.WithDescription("Audit events persisted."))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter(AuditWriteErrorsTotal, metric.WithDescription("Audit events that failed to persist."))
	if err != nil {
		return nil, err
	}
	return &Recorder{written: written, failed: failed}, nil
}

// Record counts one write attempt. It is nil-safe.
func (r *Recorder) Record(ctx context.Context, eventName string, err error) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event_name", eventName))
	if err != nil {
		r.failed.Add(ctx, 1, attrs)
		return
	}
	r.written.Add(ctx, 1, attrs)
}
