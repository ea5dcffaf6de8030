package application

import (
	"strings"
	"time"
)

// ScheduledMeeting is a meeting from the durable catalog.
type ScheduledMeeting struct {
	ID           string
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	Latitude     float64
	Longitude    float64
	Participants []string
	CreatedAt    time.Time
}

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	ID           string
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	Latitude     float64
	Longitude    float64
	Participants []string
}

// AuditAction identifies the membership transition recorded by an AuditEvent.
type AuditAction int

const (
	AuditJoin    AuditAction = 1
	AuditLeave   AuditAction = 2
	AuditTimeout AuditAction = 3
)

func (a AuditAction) String() string {
	switch a {
	case AuditJoin:
		return "JOIN"
	case AuditLeave:
		return "LEAVE"
	case AuditTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// AuditEvent is emitted on every successful join, leave and forced timeout.
type AuditEvent struct {
	Email     string
	MeetingID string
	Timestamp time.Time
	Action    AuditAction
}

// ParseParticipants splits a comma separated participant list, trimming
// whitespace and dropping empty or repeated entries. Order of first
// appearance is kept.
func ParseParticipants(raw string) []string {
	parts := strings.Split(raw, ",")
	return normalizeParticipants(parts)
}

// FormatParticipants is the inverse of ParseParticipants.
func FormatParticipants(participants []string) string {
	return strings.Join(normalizeParticipants(participants), ",")
}

func normalizeParticipants(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
