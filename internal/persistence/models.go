package persistence

import "time"

// Meeting represents a scheduled meeting stored in the durable catalog.
type Meeting struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Latitude    float64
	Longitude   float64
	// Participants holds the invited emails as a comma separated list.
	Participants string
	CreatedAt    time.Time
}

// AuditAction is the numeric action code persisted with each audit row.
type AuditAction int

const (
	AuditJoin    AuditAction = 1
	AuditLeave   AuditAction = 2
	AuditTimeout AuditAction = 3
)

// AuditEvent is an append-only membership log row.
type AuditEvent struct {
	ID        int64
	Email     string
	MeetingID string
	Timestamp time.Time
	Action    AuditAction
}
