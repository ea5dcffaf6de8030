package testfixtures

import (
	"testing"
	"time"
)

func TestClockStartsAtReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceSetAndNowFunc(t *testing.T) {
	start := ReferenceTime()
	clock := NewClock(start)
	now := clock.NowFunc()

	if got := clock.Advance(-time.Minute); !got.Equal(start.Add(-time.Minute)) {
		t.Fatalf("advance returned %v", got)
	}
	clock.Set(start.Add(time.Hour))
	if got := now(); !got.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected NowFunc to follow Set, got %v", got)
	}
}

func TestClockStepPastLeavesMeetingWindow(t *testing.T) {
	meeting := NewMeetingFixture()
	clock := NewClock(meeting.Start)

	got := clock.StepPast(meeting.End)
	if !got.After(meeting.End) || got.Sub(meeting.End) != time.Millisecond {
		t.Fatalf("expected one millisecond past %v, got %v", meeting.End, got)
	}
	if !clock.Now().Equal(got) {
		t.Fatalf("clock did not move to %v", got)
	}
}
