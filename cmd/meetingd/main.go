package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/meeting-presence/internal/activecache"
	"github.com/example/meeting-presence/internal/application"
	"github.com/example/meeting-presence/internal/chatlog"
	"github.com/example/meeting-presence/internal/config"
	httptransport "github.com/example/meeting-presence/internal/http"
	"github.com/example/meeting-presence/internal/logging"
	"github.com/example/meeting-presence/internal/persistence"
	"github.com/example/meeting-presence/internal/persistence/sqlite"
	"github.com/example/meeting-presence/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	logger := logging.New(stdout, cfg.LogLevel)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer app.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = app.reconciler.Run(runCtx)
	}()

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("meeting presence API listening", "addr", server.Addr, "cache_backend", cfg.CacheBackend)
	serveErr := server.ListenAndServe()
	// Stop the reconciler once the listener is gone.
	cancel()
	wg.Wait()
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", serveErr)
		return serveErr
	}
	return nil
}

// app holds the wired components of the daemon.
type app struct {
	storage    *sqlite.Storage
	redis      *redis.Client
	lifecycle  *application.LifecycleService
	meetings   *application.MeetingService
	reconciler *scheduler.Reconciler
	handler    http.Handler
	logger     *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	storage, err := sqlite.OpenWithConfig(sqlite.DefaultConnectionConfig(cfg.SQLiteDSN), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	a := &app{storage: storage, logger: logger}

	var (
		store activecache.Store
		chat  chatlog.Log
	)
	switch cfg.CacheBackend {
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = storage.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		a.redis = client
		store = activecache.NewRedisStore(client, activecache.WithLogger(logger))
		chat = chatlog.NewRedisLog(client, "", logger)
	default:
		store = activecache.NewMemoryStore()
		chat = chatlog.NewMemoryLog(logger)
	}

	now := time.Now
	catalog := newMeetingRepositoryAdapter(storage)

	a.lifecycle = application.NewLifecycleService(application.LifecycleConfig{
		Store:        store,
		Chat:         chat,
		Audit:        newAuditSinkAdapter(storage),
		Now:          now,
		NearbyRadius: cfg.NearbyRadius,
		Logger:       logger,
	})
	a.meetings = application.NewMeetingServiceWithLogger(catalog, a.lifecycle, uuid.NewString, now, logger)
	a.reconciler = scheduler.NewReconciler(scheduler.Config{
		Source:   catalog,
		Engine:   a.lifecycle,
		Interval: cfg.ReconcileInterval,
		Now:      now,
		Logger:   logger,
	})

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Meetings:    httptransport.NewMeetingHandler(a.meetings, logger),
		Presence:    httptransport.NewPresenceHandler(a.lifecycle, logger),
		Chat:        httptransport.NewChatHandler(a.lifecycle, logger),
		HealthCheck: a.healthCheck,
		Middleware:  []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	return a, nil
}

func (a *app) healthCheck(ctx context.Context) error {
	if err := a.storage.Ping(ctx); err != nil {
		return err
	}
	if a.redis != nil {
		return a.redis.Ping(ctx).Err()
	}
	return nil
}

// Close releases the storage and Redis connections.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

type meetingRepositoryAdapter struct {
	repo persistence.MeetingRepository
}

func newMeetingRepositoryAdapter(repo persistence.MeetingRepository) *meetingRepositoryAdapter {
	return &meetingRepositoryAdapter{repo: repo}
}

func (a *meetingRepositoryAdapter) CreateMeeting(ctx context.Context, meeting application.ScheduledMeeting) (application.ScheduledMeeting, error) {
	if err := a.repo.CreateMeeting(ctx, toPersistenceMeeting(meeting)); err != nil {
		return application.ScheduledMeeting{}, err
	}
	stored, err := a.repo.GetMeeting(ctx, meeting.ID)
	if err != nil {
		return application.ScheduledMeeting{}, err
	}
	return toApplicationMeeting(stored), nil
}

func (a *meetingRepositoryAdapter) GetMeeting(ctx context.Context, id string) (application.ScheduledMeeting, error) {
	stored, err := a.repo.GetMeeting(ctx, id)
	if err != nil {
		return application.ScheduledMeeting{}, err
	}
	return toApplicationMeeting(stored), nil
}

func (a *meetingRepositoryAdapter) ListMeetings(ctx context.Context) ([]application.ScheduledMeeting, error) {
	stored, err := a.repo.ListMeetings(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationMeetings(stored), nil
}

func (a *meetingRepositoryAdapter) DeleteMeeting(ctx context.Context, id string) error {
	return a.repo.DeleteMeeting(ctx, id)
}

func (a *meetingRepositoryAdapter) FindDueMeetings(ctx context.Context, now time.Time) ([]application.ScheduledMeeting, error) {
	stored, err := a.repo.FindDueMeetings(ctx, now)
	if err != nil {
		return nil, err
	}
	return toApplicationMeetings(stored), nil
}

type auditSinkAdapter struct {
	repo persistence.AuditRepository
}

func newAuditSinkAdapter(repo persistence.AuditRepository) *auditSinkAdapter {
	return &auditSinkAdapter{repo: repo}
}

func (a *auditSinkAdapter) Record(ctx context.Context, event application.AuditEvent) error {
	return a.repo.RecordAudit(ctx, persistence.AuditEvent{
		Email:     event.Email,
		MeetingID: event.MeetingID,
		Timestamp: event.Timestamp,
		Action:    persistence.AuditAction(event.Action),
	})
}

func toPersistenceMeeting(meeting application.ScheduledMeeting) persistence.Meeting {
	return persistence.Meeting{
		ID:           meeting.ID,
		Title:        meeting.Title,
		Description:  meeting.Description,
		Start:        meeting.Start,
		End:          meeting.End,
		Latitude:     meeting.Latitude,
		Longitude:    meeting.Longitude,
		Participants: application.FormatParticipants(meeting.Participants),
		CreatedAt:    meeting.CreatedAt,
	}
}

func toApplicationMeeting(meeting persistence.Meeting) application.ScheduledMeeting {
	return application.ScheduledMeeting{
		ID:           meeting.ID,
		Title:        meeting.Title,
		Description:  meeting.Description,
		Start:        meeting.Start,
		End:          meeting.End,
		Latitude:     meeting.Latitude,
		Longitude:    meeting.Longitude,
		Participants: application.ParseParticipants(meeting.Participants),
		CreatedAt:    meeting.CreatedAt,
	}
}

func toApplicationMeetings(meetings []persistence.Meeting) []application.ScheduledMeeting {
	out := make([]application.ScheduledMeeting, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, toApplicationMeeting(meeting))
	}
	return out
}
