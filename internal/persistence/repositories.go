package persistence

import (
	"context"
	"time"
)

// MeetingRepository exposes the durable meeting schedule.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetings(ctx context.Context) ([]Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	// FindDueMeetings returns meetings whose window contains now, inclusive on both bounds.
	FindDueMeetings(ctx context.Context, now time.Time) ([]Meeting, error)
}

// AuditRepository stores join, leave and timeout events.
type AuditRepository interface {
	RecordAudit(ctx context.Context, event AuditEvent) error
	ListAudit(ctx context.Context, meetingID string) ([]AuditEvent, error)
}
