package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/louisbranch/parkline/internal/services/game/storage"
)

// AppendAuditEvent records an audit event.
func (s *Store) AppendAuditEvent(ctx context.Context, evt storage.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.EventName) == "" {
		return fmt.Errorf("event name is required")
	}
	if strings.TrimSpace(evt.Severity) == "" {
		return fmt.Errorf("severity is required")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = s.now()
	}
	if len(evt.AttributesJSON) == 0 && len(evt.Attributes) > 0 {
		payload, err := json.Marshal(evt.Attributes)
		if err != nil {
			return fmt.Errorf("marshal audit attributes: %w", err)
		}
		evt.AttributesJSON = payload
	}

	if _, err := s.sqlDB.ExecContext(ctx, `INSERT INTO audit_events
(timestamp, event_name, severity, session_id, actor_id, request_id, trace_id, span_id, attributes_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		toMillis(evt.Timestamp),
		evt.EventName,
		evt.Severity,
		toNullString(evt.SessionID),
		toNullString(evt.ActorID),
		toNullString(evt.RequestID),
		toNullString(evt.TraceID),
		toNullString(evt.SpanID),
		evt.AttributesJSON,
	); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListAuditEvents returns audit events matching filter, oldest first.
func (s *Store) ListAuditEvents(ctx context.Context, filter storage.AuditEventFilter) ([]storage.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `SELECT id, timestamp, event_name, severity, session_id, actor_id, request_id, trace_id, span_id, attributes_json
FROM audit_events WHERE 1 = 1`
	var args []any
	if name := strings.TrimSpace(filter.EventName); name != "" {
		query += " AND event_name = ?"
		args = append(args, name)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, toMillis(filter.Since))
	}
	query += " ORDER BY timestamp, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []storage.AuditEvent
	for rows.Next() {
		var (
			evt                                            storage.AuditEvent
			timestamp                                      int64
			sessionID, actorID, requestID, traceID, spanID sql.NullString
		)
		if err := rows.Scan(&evt.ID, &timestamp, &evt.EventName, &evt.Severity,
			&sessionID, &actorID, &requestID, &traceID, &spanID, &evt.AttributesJSON); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		evt.Timestamp = fromMillis(timestamp)
		evt.SessionID = sessionID.String
		evt.ActorID = actorID.String
		evt.RequestID = requestID.String
		evt.TraceID = traceID.String
		evt.SpanID = spanID.String
		if len(evt.AttributesJSON) > 0 {
			if err := json.Unmarshal(evt.AttributesJSON, &evt.Attributes); err != nil {
				return nil, fmt.Errorf("decode audit attributes %d: %w", evt.ID, err)
			}
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func toNullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

var (
	_ storage.AuditEventStore  = (*Store)(nil)
	_ storage.AuditEventLister = (*Store)(nil)
)
