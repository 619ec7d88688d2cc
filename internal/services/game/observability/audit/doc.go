// Package audit records security and integrity relevant command outcomes:
// forbidden commands, undecodable frames, invariant violations and session
// faults. Events are persisted through a storage.AuditEventStore.
//
// Distributed tracing lives in internal/platform/otel; emitted events carry
// the active trace and span ids so the two can be joined.
package audit
