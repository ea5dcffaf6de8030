package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/meeting-presence/internal/activecache"
	"github.com/example/meeting-presence/internal/application"
	"github.com/example/meeting-presence/internal/chatlog"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("meeting"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("meeting")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LifecycleDeps captures dependencies for constructing a lifecycle service.
// Nil collaborators are replaced with in-memory implementations that are
// written back so the test can inspect them.
type LifecycleDeps struct {
	Store  activecache.Store
	Chat   chatlog.Log
	Audit  *AuditRecorder
	Radius float64
	Logger *slog.Logger
}

// NewLifecycleService builds a lifecycle service using the supplied
// dependencies combined with the factory clock.
func (f *ServiceFactory) NewLifecycleService(deps *LifecycleDeps) *application.LifecycleService {
	if deps.Logger == nil {
		deps.Logger = DiscardLogger()
	}
	if deps.Store == nil {
		deps.Store = activecache.NewMemoryStore()
	}
	if deps.Chat == nil {
		deps.Chat = chatlog.NewMemoryLog(deps.Logger)
	}
	if deps.Audit == nil {
		deps.Audit = &AuditRecorder{}
	}
	return application.NewLifecycleService(application.LifecycleConfig{
		Store:        deps.Store,
		Chat:         deps.Chat,
		Audit:        deps.Audit,
		Now:          f.Clock.NowFunc(),
		NearbyRadius: deps.Radius,
		Logger:       deps.Logger,
	})
}

// MeetingServiceDeps captures dependencies for constructing a meeting service.
type MeetingServiceDeps struct {
	Meetings  application.MeetingRepository
	Activator application.Activator
	Logger    *slog.Logger
}

// NewMeetingService builds a catalog service using the factory id generator and clock.
func (f *ServiceFactory) NewMeetingService(deps MeetingServiceDeps) *application.MeetingService {
	logger := deps.Logger
	if logger == nil {
		logger = DiscardLogger()
	}
	return application.NewMeetingServiceWithLogger(
		deps.Meetings,
		deps.Activator,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		logger,
	)
}
