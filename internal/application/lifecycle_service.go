package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-presence/internal/activecache"
	"github.com/example/meeting-presence/internal/chatlog"
	"github.com/example/meeting-presence/internal/proximity"
)

// AuditSink receives membership events. Failures are logged by the caller
// and never abort the operation that produced the event.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// LifecycleConfig wires the collaborators of a LifecycleService.
type LifecycleConfig struct {
	Store        activecache.Store
	Chat         chatlog.Log
	Audit        AuditSink
	Now          func() time.Time
	NearbyRadius float64
	Logger       *slog.Logger
}

// LifecycleService owns the active meeting state machine: activation,
// join, leave, end and chat posting. Mutations on one meeting id are
// serialized while different ids proceed independently.
type LifecycleService struct {
	store  activecache.Store
	chat   chatlog.Log
	audit  AuditSink
	now    func() time.Time
	radius float64
	locks  *activecache.KeyedMutex
	logger *slog.Logger
}

// NewLifecycleService applies defaults to cfg and returns the service.
func NewLifecycleService(cfg LifecycleConfig) *LifecycleService {
	if cfg.Store == nil {
		cfg.Store = activecache.NewMemoryStore()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NearbyRadius <= 0 {
		cfg.NearbyRadius = proximity.DefaultRadius
	}
	logger := defaultLogger(cfg.Logger)
	if cfg.Chat == nil {
		cfg.Chat = chatlog.NewMemoryLog(logger)
	}
	return &LifecycleService{
		store:  cfg.Store,
		chat:   cfg.Chat,
		audit:  cfg.Audit,
		now:    cfg.Now,
		radius: cfg.NearbyRadius,
		locks:  activecache.NewKeyedMutex(),
		logger: logger,
	}
}

func (s *LifecycleService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LifecycleService", operation, attrs...)
}

// Activate inserts the meeting into the active cache unless it is already
// active. An existing entry, and the joined set it carries, is left untouched.
func (s *LifecycleService) Activate(ctx context.Context, meeting ScheduledMeeting) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("LifecycleService is nil")
	}
	logger := s.log(ctx, "Activate", "meeting_id", meeting.ID)

	if strings.TrimSpace(meeting.ID) == "" {
		vErr := &ValidationError{}
		vErr.add("id", "id is required")
		return false, vErr
	}

	unlock := s.locks.Lock(meeting.ID)
	defer unlock()

	active := activecache.NewActiveMeeting(meeting.ID, normalizeParticipants(meeting.Participants))
	active.Title = meeting.Title
	active.Description = meeting.Description
	active.StartMs = meeting.Start.UnixMilli()
	active.EndMs = meeting.End.UnixMilli()
	active.Latitude = meeting.Latitude
	active.Longitude = meeting.Longitude

	inserted, err := s.store.Insert(ctx, active)
	if err != nil {
		err = mapStoreError(err)
		logger.Error("failed to activate meeting", "error", err, "error_kind", ErrorKind(err))
		return false, err
	}
	if inserted {
		logger.Info("meeting activated", "invited", len(active.Invited))
	} else {
		logger.Debug("meeting already active")
	}
	return inserted, nil
}

// Join adds email to the meeting's joined set. Joining twice is a no-op
// success; a JOIN audit event is emitted on every success.
func (s *LifecycleService) Join(ctx context.Context, email, meetingID string) error {
	if s == nil {
		return fmt.Errorf("LifecycleService is nil")
	}
	logger := s.log(ctx, "Join", "meeting_id", meetingID, "email", email)

	unlock := s.locks.Lock(meetingID)
	_, err := s.store.Update(ctx, meetingID, func(m *activecache.ActiveMeeting) error {
		if !m.Join(email) {
			return ErrForbidden
		}
		return nil
	})
	unlock()
	if err != nil {
		err = mapStoreError(err)
		s.logFailure(logger, "join rejected", err)
		return err
	}

	logger.Info("participant joined")
	s.record(ctx, logger, AuditEvent{Email: email, MeetingID: meetingID, Timestamp: s.now(), Action: AuditJoin})
	return nil
}

// Leave removes email from the meeting's joined set.
func (s *LifecycleService) Leave(ctx context.Context, email, meetingID string) error {
	if s == nil {
		return fmt.Errorf("LifecycleService is nil")
	}
	logger := s.log(ctx, "Leave", "meeting_id", meetingID, "email", email)

	unlock := s.locks.Lock(meetingID)
	_, err := s.store.Update(ctx, meetingID, func(m *activecache.ActiveMeeting) error {
		if !m.Leave(email) {
			return ErrNotJoined
		}
		return nil
	})
	unlock()
	if err != nil {
		err = mapStoreError(err)
		s.logFailure(logger, "leave rejected", err)
		return err
	}

	logger.Info("participant left")
	s.record(ctx, logger, AuditEvent{Email: email, MeetingID: meetingID, Timestamp: s.now(), Action: AuditLeave})
	return nil
}

// End deactivates the meeting on request.
func (s *LifecycleService) End(ctx context.Context, meetingID string) error {
	_, err := s.Deactivate(ctx, meetingID)
	return err
}

// Deactivate purges the meeting's chat log, removes it from the active cache
// and emits one TIMEOUT event per participant still joined. The events are
// returned in email order. If the chat log cannot be purged the meeting stays
// active so a later attempt can retry.
func (s *LifecycleService) Deactivate(ctx context.Context, meetingID string) ([]AuditEvent, error) {
	if s == nil {
		return nil, fmt.Errorf("LifecycleService is nil")
	}
	logger := s.log(ctx, "Deactivate", "meeting_id", meetingID)

	unlock := s.locks.Lock(meetingID)
	defer unlock()

	if _, err := s.store.Get(ctx, meetingID); err != nil {
		err = mapStoreError(err)
		s.logFailure(logger, "deactivate rejected", err)
		return nil, err
	}

	if err := s.chat.Delete(ctx, meetingID); err != nil {
		wrapped := unavailable(err)
		logger.Error("failed to purge chat log", "error", err, "error_kind", ErrorKind(wrapped))
		return nil, wrapped
	}

	removed, err := s.store.Delete(ctx, meetingID)
	if err != nil {
		err = mapStoreError(err)
		s.logFailure(logger, "failed to remove active meeting", err)
		return nil, err
	}

	ts := s.now()
	joined := removed.JoinedList()
	events := make([]AuditEvent, 0, len(joined))
	for _, email := range joined {
		event := AuditEvent{Email: email, MeetingID: meetingID, Timestamp: ts, Action: AuditTimeout}
		s.record(ctx, logger, event)
		events = append(events, event)
	}

	logger.Info("meeting deactivated", "timed_out", len(events))
	return events, nil
}

// Joined lists the emails currently joined. An inactive meeting yields an
// empty list.
func (s *LifecycleService) Joined(ctx context.Context, meetingID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("LifecycleService is nil")
	}
	m, err := s.store.Get(ctx, meetingID)
	if errors.Is(err, activecache.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, mapStoreError(err)
	}
	return m.JoinedList(), nil
}

// ListActive returns the ids of every active meeting in ascending order.
func (s *LifecycleService) ListActive(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("LifecycleService is nil")
	}
	ids, err := s.store.IDs(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return ids, nil
}

// PostMessage appends a chat message from a joined participant.
func (s *LifecycleService) PostMessage(ctx context.Context, meetingID, email, body string) error {
	if s == nil {
		return fmt.Errorf("LifecycleService is nil")
	}
	logger := s.log(ctx, "PostMessage", "meeting_id", meetingID, "email", email)

	if strings.TrimSpace(body) == "" {
		logger.Warn("empty chat message rejected")
		return ErrInvalidMessage
	}

	unlock := s.locks.Lock(meetingID)
	defer unlock()

	m, err := s.store.Get(ctx, meetingID)
	if err != nil {
		err = mapStoreError(err)
		s.logFailure(logger, "post rejected", err)
		return err
	}
	if !m.IsJoined(email) {
		logger.Warn("post rejected", "error_kind", ErrorKind(ErrForbidden))
		return ErrForbidden
	}

	msg := chatlog.Message{SenderEmail: email, Body: body, TimestampMs: s.now().UnixMilli()}
	if err := s.chat.Append(ctx, meetingID, msg); err != nil {
		wrapped := unavailable(err)
		logger.Error("failed to append chat message", "error", err, "error_kind", ErrorKind(wrapped))
		return wrapped
	}
	logger.Debug("chat message appended")
	return nil
}

// ChatLog returns the meeting's messages in append order.
func (s *LifecycleService) ChatLog(ctx context.Context, meetingID string) ([]chatlog.Message, error) {
	if s == nil {
		return nil, fmt.Errorf("LifecycleService is nil")
	}
	msgs, err := s.chat.Messages(ctx, meetingID)
	if err != nil {
		return nil, unavailable(err)
	}
	return msgs, nil
}

// UserMessagesInMeeting returns the messages email sent to the meeting.
func (s *LifecycleService) UserMessagesInMeeting(ctx context.Context, meetingID, email string) ([]chatlog.Message, error) {
	msgs, err := s.ChatLog(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return chatlog.FilterBySender(msgs, email), nil
}

// UserMessages returns the messages email sent to the active meeting they
// are joined to. When they are joined to several, the lexicographically
// smallest meeting id wins. No joined meeting yields an empty list.
func (s *LifecycleService) UserMessages(ctx context.Context, email string) ([]chatlog.Message, error) {
	if s == nil {
		return nil, fmt.Errorf("LifecycleService is nil")
	}
	meetings, err := s.store.List(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	for _, m := range meetings {
		if m.IsJoined(email) {
			return s.UserMessagesInMeeting(ctx, m.ID, email)
		}
	}
	return []chatlog.Message{}, nil
}

// ActiveSnapshot returns every active meeting with its invited and joined
// sets, ordered by id. It backs the operator inspection endpoint.
func (s *LifecycleService) ActiveSnapshot(ctx context.Context) ([]activecache.ActiveMeeting, error) {
	if s == nil {
		return nil, fmt.Errorf("LifecycleService is nil")
	}
	meetings, err := s.store.List(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return meetings, nil
}

// FindNearby returns the active meetings email is invited to within the
// configured radius of (x, y).
func (s *LifecycleService) FindNearby(ctx context.Context, email string, x, y float64) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("LifecycleService is nil")
	}
	meetings, err := s.store.List(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return proximity.FindNearby(meetings, email, proximity.Point{X: x, Y: y}, s.radius), nil
}

func (s *LifecycleService) record(ctx context.Context, logger *slog.Logger, event AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, event); err != nil {
		logger.Warn("failed to record audit event", "error", err, "action", event.Action.String(), "email", event.Email)
	}
}

func (s *LifecycleService) logFailure(logger *slog.Logger, msg string, err error) {
	kind := ErrorKind(err)
	switch kind {
	case "unavailable", "conflict", "unexpected":
		logger.Error(msg, "error", err, "error_kind", kind)
	default:
		logger.Warn(msg, "error_kind", kind)
	}
}

func unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// mapStoreError translates cache errors into service errors. Sentinels
// returned from update callbacks pass through unchanged.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, activecache.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, activecache.ErrConflict):
		return ErrConflict
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotJoined):
		return err
	}
	return unavailable(err)
}
