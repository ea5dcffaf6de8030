package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/meeting-presence/internal/activecache"
	"github.com/example/meeting-presence/internal/application"
)

type presenceService interface {
	Join(ctx context.Context, email, meetingID string) error
	Leave(ctx context.Context, email, meetingID string) error
	End(ctx context.Context, meetingID string) error
	Joined(ctx context.Context, meetingID string) ([]string, error)
	ListActive(ctx context.Context) ([]string, error)
	FindNearby(ctx context.Context, email string, x, y float64) ([]string, error)
	ActiveSnapshot(ctx context.Context) ([]activecache.ActiveMeeting, error)
}

// PresenceHandler serves the active meeting membership endpoints.
type PresenceHandler struct {
	service   presenceService
	responder responder
	logger    *slog.Logger
}

func NewPresenceHandler(service presenceService, logger *slog.Logger) *PresenceHandler {
	base := defaultLogger(logger)
	return &PresenceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PresenceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PresenceHandler", operation, attrs...)
}

func (h *PresenceHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Join", func(ctx context.Context, email, id string) error {
		return h.service.Join(ctx, email, id)
	})
}

func (h *PresenceHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Leave", func(ctx context.Context, email, id string) error {
		return h.service.Leave(ctx, email, id)
	})
}

func (h *PresenceHandler) transition(w http.ResponseWriter, r *http.Request, operation string, apply func(ctx context.Context, email, id string) error) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := meetingIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEmail)
		return
	}

	logger := h.log(r.Context(), operation, "meeting_id", id, "email", email)
	if err := apply(r.Context(), email, id); err != nil {
		logger.WarnContext(r.Context(), "membership transition rejected", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PresenceHandler) End(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := meetingIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	logger := h.log(r.Context(), "End", "meeting_id", id)
	if err := h.service.End(r.Context(), id); err != nil {
		logger.WarnContext(r.Context(), "end rejected", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "meeting ended")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PresenceHandler) Joined(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := meetingIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	joined, err := h.service.Joined(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Joined", "meeting_id", id).ErrorContext(r.Context(), "joined lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, joinedResponse{MeetingID: id, Participants: joined})
}

func (h *PresenceHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ids, err := h.service.ListActive(r.Context())
	if err != nil {
		h.log(r.Context(), "ListActive").ErrorContext(r.Context(), "active listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingIDsResponse{MeetingIDs: ids})
}

func (h *PresenceHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	email := strings.TrimSpace(query.Get("email"))
	if email == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEmail)
		return
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(query.Get("x")), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(query.Get("y")), 64)
	if errX != nil || errY != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPosition)
		return
	}

	ids, err := h.service.FindNearby(r.Context(), email, x, y)
	if err != nil {
		h.log(r.Context(), "Nearby", "email", email).ErrorContext(r.Context(), "nearby search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingIDsResponse{MeetingIDs: ids})
}

// Debug dumps the active cache for operators: every active meeting with
// its window, invited and joined participants.
func (h *PresenceHandler) Debug(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetings, err := h.service.ActiveSnapshot(r.Context())
	if err != nil {
		h.log(r.Context(), "Debug").ErrorContext(r.Context(), "active snapshot failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]activeMeetingDTO, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, activeMeetingDTO{
			MeetingID: m.ID,
			Title:     m.Title,
			StartMs:   m.StartMs,
			EndMs:     m.EndMs,
			Invited:   m.InvitedList(),
			Joined:    m.JoinedList(),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, activeSnapshotResponse{Meetings: out})
}

type activeMeetingDTO struct {
	MeetingID string   `json:"meeting_id"`
	Title     string   `json:"title"`
	StartMs   int64    `json:"start_ms"`
	EndMs     int64    `json:"end_ms"`
	Invited   []string `json:"invited"`
	Joined    []string `json:"joined"`
}

type activeSnapshotResponse struct {
	Meetings []activeMeetingDTO `json:"meetings"`
}

type meetingIDsResponse struct {
	MeetingIDs []string `json:"meeting_ids"`
}

type joinedResponse struct {
	MeetingID    string   `json:"meeting_id"`
	Participants []string `json:"participants"`
}
