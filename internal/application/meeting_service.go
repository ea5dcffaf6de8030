package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-presence/internal/persistence"
)

// MeetingRepository captures the durable catalog interactions needed by the services.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting ScheduledMeeting) (ScheduledMeeting, error)
	GetMeeting(ctx context.Context, id string) (ScheduledMeeting, error)
	ListMeetings(ctx context.Context) ([]ScheduledMeeting, error)
	DeleteMeeting(ctx context.Context, id string) error
}

// Activator is the part of the lifecycle engine the catalog needs for manual activation.
type Activator interface {
	Activate(ctx context.Context, meeting ScheduledMeeting) (bool, error)
}

// MeetingService validates and persists scheduled meetings.
type MeetingService struct {
	meetings    MeetingRepository
	activator   Activator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService wires dependencies for catalog operations.
func NewMeetingService(meetings MeetingRepository, activator Activator, idGenerator func() string, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(meetings, activator, idGenerator, now, nil)
}

// NewMeetingServiceWithLogger wires dependencies and a logger for catalog operations.
func NewMeetingServiceWithLogger(meetings MeetingRepository, activator Activator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		meetings:    meetings,
		activator:   activator,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateMeeting validates input and stores the meeting. A blank id is
// replaced with a generated one.
func (s *MeetingService) CreateMeeting(ctx context.Context, input MeetingInput) (ScheduledMeeting, error) {
	if s == nil {
		return ScheduledMeeting{}, fmt.Errorf("MeetingService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "MeetingService", "CreateMeeting", "meeting_id", input.ID)

	participants := normalizeParticipants(input.Participants)

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("end", "end must be after start")
	}
	if len(participants) == 0 {
		vErr.add("participants", "at least one participant is required")
	}
	for _, p := range participants {
		if strings.Contains(p, ",") || !strings.Contains(p, "@") {
			vErr.add("participants", fmt.Sprintf("invalid participant %q", p))
			break
		}
	}
	if vErr.HasErrors() {
		logger.Warn("meeting validation failed", "error_kind", ErrorKind(vErr), "fields", vErr.FieldErrors)
		return ScheduledMeeting{}, vErr
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = s.idGenerator()
	}

	meeting := ScheduledMeeting{
		ID:           id,
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		Start:        input.Start.UTC(),
		End:          input.End.UTC(),
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		Participants: participants,
		CreatedAt:    s.now().UTC(),
	}

	if s.meetings == nil {
		return meeting, nil
	}

	stored, err := s.meetings.CreateMeeting(ctx, meeting)
	if err != nil {
		err = mapRepoError(err)
		logger.Error("failed to create meeting", "error", err, "error_kind", ErrorKind(err))
		return ScheduledMeeting{}, err
	}
	logger.Info("meeting created", "meeting_id", stored.ID, "participants", len(stored.Participants))
	return stored, nil
}

// GetMeeting loads one meeting from the catalog.
func (s *MeetingService) GetMeeting(ctx context.Context, id string) (ScheduledMeeting, error) {
	if s == nil {
		return ScheduledMeeting{}, fmt.Errorf("MeetingService is nil")
	}
	if s.meetings == nil {
		return ScheduledMeeting{}, ErrNotFound
	}
	meeting, err := s.meetings.GetMeeting(ctx, id)
	if err != nil {
		return ScheduledMeeting{}, mapRepoError(err)
	}
	return meeting, nil
}

// ListMeetings returns the whole catalog.
func (s *MeetingService) ListMeetings(ctx context.Context) ([]ScheduledMeeting, error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	if s.meetings == nil {
		return []ScheduledMeeting{}, nil
	}
	meetings, err := s.meetings.ListMeetings(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return meetings, nil
}

// DeleteMeeting removes a meeting from the catalog. An already active
// meeting stays active until the reconciler sees its window close.
func (s *MeetingService) DeleteMeeting(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("MeetingService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "MeetingService", "DeleteMeeting", "meeting_id", id)
	if s.meetings == nil {
		return ErrNotFound
	}
	if err := s.meetings.DeleteMeeting(ctx, id); err != nil {
		err = mapRepoError(err)
		logger.Warn("failed to delete meeting", "error_kind", ErrorKind(err))
		return err
	}
	logger.Info("meeting deleted")
	return nil
}

// ActivateNow activates a catalog meeting regardless of its window. It is
// idempotent and never resets the joined set of an active meeting.
func (s *MeetingService) ActivateNow(ctx context.Context, id string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("MeetingService is nil")
	}
	if s.activator == nil {
		return false, fmt.Errorf("MeetingService has no activator")
	}
	meeting, err := s.GetMeeting(ctx, id)
	if err != nil {
		return false, err
	}
	return s.activator.Activate(ctx, meeting)
}

func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("meeting", "violates catalog constraints")
		return vErr
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists):
		return err
	}
	return unavailable(err)
}
