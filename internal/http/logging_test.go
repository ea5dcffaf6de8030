package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestHandlerLogger_FallbackCarriesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	fallback := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := ContextWithRequestID(context.Background(), "req-7")

	handlerLogger(ctx, fallback, "PresenceHandler", "Join", "meeting_id", "m1").Info("joined")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "PresenceHandler", entry["handler"])
	assert.Equal(t, "Join", entry["operation"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "m1", entry["meeting_id"])
}

func TestHandlerLogger_PrefersContextLogger(t *testing.T) {
	t.Parallel()

	var scoped, fallback bytes.Buffer
	ctx := ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&scoped, nil)).With("request_id", "req-9"))
	ctx = ContextWithRequestID(ctx, "req-9")

	handlerLogger(ctx, slog.New(slog.NewJSONHandler(&fallback, nil)), "ChatHandler", "").Info("posted")

	assert.Zero(t, fallback.Len())
	entry := decodeLine(t, &scoped)
	assert.Equal(t, "ChatHandler", entry["handler"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.NotContains(t, entry, "operation")
}
