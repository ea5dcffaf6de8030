package sqlite

import (
	"context"
	"time"

	"github.com/example/meeting-presence/internal/persistence"
)

// RecordAudit appends an event to the audit log.
func (s *Storage) RecordAudit(ctx context.Context, event persistence.AuditEvent) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (email, meeting_id, timestamp_ms, action) VALUES (?, ?, ?, ?)`,
		event.Email, event.MeetingID, ts.UnixMilli(), int(event.Action))
	return mapError(err)
}

// ListAudit returns the events recorded for a meeting in insertion order.
func (s *Storage) ListAudit(ctx context.Context, meetingID string) ([]persistence.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, meeting_id, timestamp_ms, action FROM audit_log WHERE meeting_id = ? ORDER BY id`, meetingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.AuditEvent
	for rows.Next() {
		var (
			event  persistence.AuditEvent
			tsMs   int64
			action int
		)
		if err := rows.Scan(&event.ID, &event.Email, &event.MeetingID, &tsMs, &action); err != nil {
			return nil, mapError(err)
		}
		event.Timestamp = time.UnixMilli(tsMs).UTC()
		event.Action = persistence.AuditAction(action)
		events = append(events, event)
	}
	return events, rows.Err()
}
