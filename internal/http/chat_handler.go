package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/meeting-presence/internal/application"
	"github.com/example/meeting-presence/internal/chatlog"
)

type chatService interface {
	PostMessage(ctx context.Context, meetingID, email, body string) error
	ChatLog(ctx context.Context, meetingID string) ([]chatlog.Message, error)
	UserMessagesInMeeting(ctx context.Context, meetingID, email string) ([]chatlog.Message, error)
	UserMessages(ctx context.Context, email string) ([]chatlog.Message, error)
}

// ChatHandler serves the per-meeting chat log.
type ChatHandler struct {
	service   chatService
	responder responder
	logger    *slog.Logger
}

func NewChatHandler(service chatService, logger *slog.Logger) *ChatHandler {
	base := defaultLogger(logger)
	return &ChatHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ChatHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ChatHandler", operation, attrs...)
}

func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := meetingIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Post", "meeting_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode chat request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEmail)
		return
	}

	logger := h.log(r.Context(), "Post", "meeting_id", id, "email", email)
	if err := h.service.PostMessage(r.Context(), id, email, req.Message); err != nil {
		logger.WarnContext(r.Context(), "chat post rejected", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, postResponse{MeetingID: id, Posted: true})
}

func (h *ChatHandler) Log(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := meetingIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}
	msgs, err := h.service.ChatLog(r.Context(), id)
	h.render(w, r, "Log", id, msgs, err)
}

func (h *ChatHandler) UserInMeeting(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := meetingIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}
	email := strings.TrimSpace(r.PathValue("email"))
	if email == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEmail)
		return
	}
	msgs, err := h.service.UserMessagesInMeeting(r.Context(), id, email)
	h.render(w, r, "UserInMeeting", id, msgs, err)
}

func (h *ChatHandler) User(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	email := strings.TrimSpace(r.PathValue("email"))
	if email == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEmail)
		return
	}
	msgs, err := h.service.UserMessages(r.Context(), email)
	h.render(w, r, "User", "", msgs, err)
}

func (h *ChatHandler) render(w http.ResponseWriter, r *http.Request, operation, meetingID string, msgs []chatlog.Message, err error) {
	if err != nil {
		h.log(r.Context(), operation, "meeting_id", meetingID).ErrorContext(r.Context(), "chat read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if msgs == nil {
		msgs = []chatlog.Message{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, chatLogResponse{MeetingID: meetingID, Messages: msgs})
}

type chatRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type postResponse struct {
	MeetingID string `json:"meeting_id"`
	Posted    bool   `json:"posted"`
}

type chatLogResponse struct {
	MeetingID string            `json:"meeting_id,omitempty"`
	Messages  []chatlog.Message `json:"messages"`
}
