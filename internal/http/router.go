package http

import (
	"context"
	"net/http"
)

// RouterConfig selects the handler groups to mount. Nil groups are skipped.
type RouterConfig struct {
	Meetings    *MeetingHandler
	Presence    *PresenceHandler
	Chat        *ChatHandler
	HealthCheck func(ctx context.Context) error
	Middleware  []func(http.Handler) http.Handler
}

// NewRouter mounts the configured handlers and wraps them with cfg.Middleware,
// the first entry being the outermost.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Presence != nil {
		mux.HandleFunc("GET /meetings/active", cfg.Presence.ListActive)
		mux.HandleFunc("GET /meetings/nearby", cfg.Presence.Nearby)
		mux.HandleFunc("POST /meetings/{id}/join", cfg.Presence.Join)
		mux.HandleFunc("POST /meetings/{id}/leave", cfg.Presence.Leave)
		mux.HandleFunc("GET /meetings/{id}/joined", cfg.Presence.Joined)
		mux.HandleFunc("POST /meetings/{id}/end", cfg.Presence.End)
		mux.HandleFunc("GET /debug/active", cfg.Presence.Debug)
	}

	if cfg.Meetings != nil {
		mux.HandleFunc("POST /meetings", cfg.Meetings.Create)
		mux.HandleFunc("GET /meetings", cfg.Meetings.List)
		mux.HandleFunc("GET /meetings/{id}", cfg.Meetings.Get)
		mux.HandleFunc("DELETE /meetings/{id}", cfg.Meetings.Delete)
		mux.HandleFunc("POST /meetings/{id}/activate", cfg.Meetings.Activate)
	}

	if cfg.Chat != nil {
		mux.HandleFunc("POST /meetings/{id}/chat", cfg.Chat.Post)
		mux.HandleFunc("GET /meetings/{id}/chat", cfg.Chat.Log)
		mux.HandleFunc("GET /meetings/{id}/chat/users/{email}", cfg.Chat.UserInMeeting)
		mux.HandleFunc("GET /users/{email}/messages", cfg.Chat.User)
	}

	mux.HandleFunc("GET /healthz", healthz(cfg.HealthCheck))

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	responder := newResponder(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status string `json:"status"`
}
