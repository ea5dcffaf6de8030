package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/example/meeting-presence/internal/application"
)

func TestMeetingFixtureIsDueAtReferenceTime(t *testing.T) {
	f := NewMeetingFixture()
	if f.Start.After(ReferenceTime()) || f.End.Before(ReferenceTime()) {
		t.Fatalf("expected window %v..%v to contain %v", f.Start, f.End, ReferenceTime())
	}
	if got := f.Persistence().Participants; got != "a@x.com,b@x.com" {
		t.Fatalf("unexpected participants column %q", got)
	}
}

func TestMeetingFixtureOptions(t *testing.T) {
	f := NewMeetingFixture(WithMeetingID("m1"), WithMeetingLocation(3, 4), WithMeetingParticipants("c@x.com"))
	s := f.Scheduled()
	if s.ID != "m1" || s.Latitude != 3 || s.Longitude != 4 {
		t.Fatalf("options not applied: %+v", s)
	}
	if len(s.Participants) != 1 || s.Participants[0] != "c@x.com" {
		t.Fatalf("unexpected participants %v", s.Participants)
	}
}

func TestAuditRecorder(t *testing.T) {
	rec := &AuditRecorder{}
	ctx := context.Background()
	_ = rec.Record(ctx, application.AuditEvent{MeetingID: "m1", Email: "a@x.com", Action: application.AuditJoin})
	_ = rec.Record(ctx, application.AuditEvent{MeetingID: "m1", Email: "a@x.com", Action: application.AuditLeave})

	if rec.Count("m1", application.AuditJoin) != 1 || len(rec.Events()) != 2 {
		t.Fatalf("unexpected events %v", rec.Events())
	}

	rec.Err = errors.New("sink down")
	if err := rec.Record(ctx, application.AuditEvent{MeetingID: "m1"}); err == nil {
		t.Fatalf("expected configured error")
	}
	if len(rec.Events()) != 2 {
		t.Fatalf("failed record must not be captured")
	}
}

func TestServiceFactoryNewMeetingService(t *testing.T) {
	factory := NewServiceFactory()
	svc := factory.NewMeetingService(MeetingServiceDeps{})

	input := NewMeetingFixture(WithMeetingID("")).Input()
	meeting, err := svc.CreateMeeting(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateMeeting returned error: %v", err)
	}
	if meeting.ID != "meeting-1" {
		t.Fatalf("expected generated ID meeting-1, got %q", meeting.ID)
	}
	if !meeting.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), meeting.CreatedAt)
	}
}

func TestSQLiteHarnessMigrates(t *testing.T) {
	h := NewSQLiteHarness(t)
	if err := h.Meetings.CreateMeeting(context.Background(), NewMeetingFixture().Persistence()); err != nil {
		t.Fatalf("CreateMeeting returned error: %v", err)
	}
}
