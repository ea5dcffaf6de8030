package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-presence/internal/application"
	"github.com/example/meeting-presence/internal/config"
	"github.com/example/meeting-presence/internal/persistence"
	"github.com/example/meeting-presence/internal/testfixtures"
)

func TestMeetingRepositoryAdapter_RoundTrip(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	adapter := newMeetingRepositoryAdapter(h.Meetings)
	ctx := context.Background()

	fixture := testfixtures.NewMeetingFixture(testfixtures.WithMeetingParticipants("a@x.com", "b@x.com"))
	stored, err := adapter.CreateMeeting(ctx, fixture.Scheduled())
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, stored.Participants)
	assert.True(t, stored.Start.Equal(fixture.Start))

	due, err := adapter.FindDueMeetings(ctx, fixture.End)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, fixture.ID, due[0].ID)

	due, err = adapter.FindDueMeetings(ctx, fixture.End.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Empty(t, due)

	_, err = adapter.GetMeeting(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestAuditSinkAdapter_PersistsEvents(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	sink := newAuditSinkAdapter(h.Audit)
	ctx := context.Background()

	ts := testfixtures.ReferenceTime()
	require.NoError(t, sink.Record(ctx, application.AuditEvent{Email: "a@x.com", MeetingID: "m1", Timestamp: ts, Action: application.AuditTimeout}))

	events, err := h.Audit.ListAudit(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, persistence.AuditTimeout, events[0].Action)
	assert.True(t, events[0].Timestamp.Equal(ts))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.SQLiteDSN = filepath.Join(t.TempDir(), "meetings.db")
	return cfg
}

func call(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func exerciseLifecycle(t *testing.T, a *app) {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	body := fmt.Sprintf(`{"id":"M1","title":"Standup","start":%q,"end":%q,"participants":["a@x.com","b@x.com"]}`,
		now.Add(-time.Minute).Format(time.RFC3339), now.Add(time.Hour).Format(time.RFC3339))
	require.Equal(t, http.StatusCreated, call(t, a.handler, http.MethodPost, "/meetings", body).Code)

	report, err := a.reconciler.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Activated)

	require.Equal(t, http.StatusNoContent, call(t, a.handler, http.MethodPost, "/meetings/M1/join?email=a@x.com", "").Code)
	require.Equal(t, http.StatusCreated, call(t, a.handler, http.MethodPost, "/meetings/M1/chat", `{"email":"a@x.com","message":"hi"}`).Code)

	rec := call(t, a.handler, http.MethodGet, "/meetings/M1/chat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"hi"`)

	require.Equal(t, http.StatusNoContent, call(t, a.handler, http.MethodPost, "/meetings/M1/end", "").Code)

	rec = call(t, a.handler, http.MethodGet, "/meetings/active", "")
	assert.JSONEq(t, `{"meeting_ids":[]}`, rec.Body.String())

	events, err := a.storage.ListAudit(ctx, "M1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, persistence.AuditJoin, events[0].Action)
	assert.Equal(t, persistence.AuditTimeout, events[1].Action)

	assert.Equal(t, http.StatusOK, call(t, a.handler, http.MethodGet, "/healthz", "").Code)
}

func TestNewApp_MemoryBackend(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t), testfixtures.DiscardLogger())
	require.NoError(t, err)
	defer a.Close()

	exerciseLifecycle(t, a)
}

func TestNewApp_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.CacheBackend = config.CacheRedis
	cfg.RedisAddr = mr.Addr()

	a, err := newApp(context.Background(), cfg, testfixtures.DiscardLogger())
	require.NoError(t, err)
	defer a.Close()

	exerciseLifecycle(t, a)
	assert.False(t, mr.Exists("chat:M1"))
}

func TestNewApp_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.CacheBackend = config.CacheRedis
	cfg.RedisAddr = addr

	_, err := newApp(context.Background(), cfg, testfixtures.DiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"--help"}, &out)
	assert.True(t, errors.Is(err, config.ErrHelp))
}

func TestRun_ReturnsWhenListenerFails(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	args := []string{
		"--http-port", strconv.Itoa(port),
		"--sqlite-dsn", filepath.Join(t.TempDir(), "meetings.db"),
		"--reconcile-interval", "1h",
	}

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- run(context.Background(), args, &out) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, out.String(), "server encountered error")
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after the listener on port %d failed", port)
	}
}
