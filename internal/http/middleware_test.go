package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-presence/internal/testfixtures"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var seenID string
	var sawLogger bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = RequestIDFromContext(r.Context())
		sawLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	})
	handler := RequestLogger(testfixtures.DiscardLogger())(next)

	t.Run("generates a request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meetings/active", nil))

		require.True(t, sawLogger)
		_, err := uuid.Parse(seenID)
		require.NoError(t, err)
		assert.Equal(t, seenID, rec.Header().Get(requestIDHeader))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("reuses the caller's request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/meetings/active", nil)
		req.Header.Set(requestIDHeader, "trace-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "trace-123", seenID)
		assert.Equal(t, "trace-123", rec.Header().Get(requestIDHeader))
	})
}
