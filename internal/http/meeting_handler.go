package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-presence/internal/application"
)

type meetingService interface {
	CreateMeeting(ctx context.Context, input application.MeetingInput) (application.ScheduledMeeting, error)
	GetMeeting(ctx context.Context, id string) (application.ScheduledMeeting, error)
	ListMeetings(ctx context.Context) ([]application.ScheduledMeeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	ActivateNow(ctx context.Context, id string) (bool, error)
}

// MeetingHandler serves the meeting catalog.
type MeetingHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
}

func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	return &MeetingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "meeting_id", req.ID)

	meeting, err := h.service.CreateMeeting(r.Context(), req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "meeting creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", meeting.ID).InfoContext(r.Context(), "meeting created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := meetingIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	meeting, err := h.service.GetMeeting(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "meeting_id", id).DebugContext(r.Context(), "meeting lookup failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetings, err := h.service.ListMeetings(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "meeting listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: toMeetingDTOs(meetings)})
}

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := meetingIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	logger := h.log(r.Context(), "Delete", "meeting_id", id)
	if err := h.service.DeleteMeeting(r.Context(), id); err != nil {
		logger.WarnContext(r.Context(), "meeting deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *MeetingHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := meetingIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	logger := h.log(r.Context(), "Activate", "meeting_id", id)
	activated, err := h.service.ActivateNow(r.Context(), id)
	if err != nil {
		logger.WarnContext(r.Context(), "manual activation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "manual activation handled", "activated", activated)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, activateResponse{MeetingID: id, Activated: activated})
}

func meetingIDFromRequest(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	return id, id != ""
}

type meetingRequest struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Participants []string `json:"participants"`
}

func (r meetingRequest) toInput() application.MeetingInput {
	return application.MeetingInput{
		ID:           strings.TrimSpace(r.ID),
		Title:        strings.TrimSpace(r.Title),
		Description:  r.Description,
		Start:        parseTime(r.Start),
		End:          parseTime(r.End),
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		Participants: append([]string(nil), r.Participants...),
	}
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type activateResponse struct {
	MeetingID string `json:"meeting_id"`
	Activated bool   `json:"activated"`
}

type meetingDTO struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Participants []string `json:"participants"`
	CreatedAt    string   `json:"created_at"`
}

func toMeetingDTO(meeting application.ScheduledMeeting) meetingDTO {
	participants := append([]string{}, meeting.Participants...)
	return meetingDTO{
		ID:           meeting.ID,
		Title:        meeting.Title,
		Description:  meeting.Description,
		Start:        meeting.Start.UTC().Format(time.RFC3339Nano),
		End:          meeting.End.UTC().Format(time.RFC3339Nano),
		Latitude:     meeting.Latitude,
		Longitude:    meeting.Longitude,
		Participants: participants,
		CreatedAt:    meeting.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toMeetingDTOs(meetings []application.ScheduledMeeting) []meetingDTO {
	out := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, toMeetingDTO(meeting))
	}
	return out
}
