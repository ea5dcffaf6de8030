package testfixtures

import (
	"context"
	"sync"

	"github.com/example/meeting-presence/internal/application"
)

// AuditRecorder is an in-memory application.AuditSink. Setting Err makes
// every Record call fail after capturing nothing.
type AuditRecorder struct {
	mu     sync.Mutex
	events []application.AuditEvent
	Err    error
}

// Record implements application.AuditSink.
func (r *AuditRecorder) Record(ctx context.Context, event application.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events in arrival order.
func (r *AuditRecorder) Events() []application.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]application.AuditEvent(nil), r.events...)
}

// Count returns how many recorded events match action for meetingID.
func (r *AuditRecorder) Count(meetingID string, action application.AuditAction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.MeetingID == meetingID && e.Action == action {
			n++
		}
	}
	return n
}
