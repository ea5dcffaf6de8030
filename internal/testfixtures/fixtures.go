package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-presence/internal/application"
	"github.com/example/meeting-presence/internal/persistence"
)

var meetingCounter uint64

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// MeetingFixture is a deterministic scheduled meeting. By default its window
// opens ten minutes before ReferenceTime and closes fifty minutes after, so
// it is due at ReferenceTime.
type MeetingFixture struct {
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

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns a deterministic meeting fixture with optional overrides.
func NewMeetingFixture(opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	fixture := MeetingFixture{
		ID:           fmt.Sprintf("meeting-%03d", idx),
		Title:        fmt.Sprintf("Meeting %03d", idx),
		Description:  "Weekly sync",
		Start:        referenceTime.Add(-10 * time.Minute),
		End:          referenceTime.Add(50 * time.Minute),
		Participants: []string{"a@x.com", "b@x.com"},
		CreatedAt:    referenceTime.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMeetingID overrides the meeting identifier.
func WithMeetingID(id string) MeetingOption {
	return func(f *MeetingFixture) {
		f.ID = id
	}
}

// WithMeetingTitle overrides the meeting title.
func WithMeetingTitle(title string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Title = title
	}
}

// WithMeetingWindow sets the start and end instants.
func WithMeetingWindow(start, end time.Time) MeetingOption {
	return func(f *MeetingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithMeetingLocation sets the planar coordinates.
func WithMeetingLocation(x, y float64) MeetingOption {
	return func(f *MeetingFixture) {
		f.Latitude = x
		f.Longitude = y
	}
}

// WithMeetingParticipants replaces the invited emails.
func WithMeetingParticipants(emails ...string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Participants = append([]string(nil), emails...)
	}
}

// Scheduled converts the fixture to the application representation.
func (f MeetingFixture) Scheduled() application.ScheduledMeeting {
	return application.ScheduledMeeting{
		ID:           f.ID,
		Title:        f.Title,
		Description:  f.Description,
		Start:        f.Start,
		End:          f.End,
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		Participants: append([]string(nil), f.Participants...),
		CreatedAt:    f.CreatedAt,
	}
}

// Input converts the fixture into a catalog create request.
func (f MeetingFixture) Input() application.MeetingInput {
	return application.MeetingInput{
		ID:           f.ID,
		Title:        f.Title,
		Description:  f.Description,
		Start:        f.Start,
		End:          f.End,
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		Participants: append([]string(nil), f.Participants...),
	}
}

// Persistence converts the fixture to the durable row representation.
func (f MeetingFixture) Persistence() persistence.Meeting {
	return persistence.Meeting{
		ID:           f.ID,
		Title:        f.Title,
		Description:  f.Description,
		Start:        f.Start,
		End:          f.End,
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		Participants: application.FormatParticipants(f.Participants),
		CreatedAt:    f.CreatedAt,
	}
}
