// Package scheduler keeps the active meeting cache in step with the durable
// catalog. Each tick activates every meeting whose window contains the
// current instant and deactivates every active meeting that is no longer due.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/example/meeting-presence/internal/application"
)

// DefaultInterval is the pause between two reconciliation ticks.
const DefaultInterval = 60 * time.Second

// ErrTickInProgress is returned when a tick starts while another is still running.
var ErrTickInProgress = errors.New("scheduler: reconciliation tick already running")

// DueMeetingSource lists the meetings whose window contains now, inclusive on both bounds.
type DueMeetingSource interface {
	FindDueMeetings(ctx context.Context, now time.Time) ([]application.ScheduledMeeting, error)
}

// Engine is the part of the lifecycle service the reconciler drives.
type Engine interface {
	Activate(ctx context.Context, meeting application.ScheduledMeeting) (bool, error)
	Deactivate(ctx context.Context, meetingID string) ([]application.AuditEvent, error)
	ListActive(ctx context.Context) ([]string, error)
}

// Config wires a Reconciler.
type Config struct {
	Source   DueMeetingSource
	Engine   Engine
	Interval time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// TickReport summarises one reconciliation pass.
type TickReport struct {
	Due           int
	Activated     int
	Deactivated   int
	Failed        int
	TimeoutEvents int
}

// Reconciler periodically converges the active cache on the due set.
type Reconciler struct {
	source   DueMeetingSource
	engine   Engine
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	running  atomic.Bool
}

// NewReconciler applies defaults to cfg and returns the reconciler.
func NewReconciler(cfg Config) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Reconciler{
		source:   cfg.Source,
		engine:   cfg.Engine,
		interval: cfg.Interval,
		now:      cfg.Now,
		logger:   cfg.Logger.With("component", "reconciler"),
	}
}

// Run ticks once immediately and then every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("reconciler started", "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Tick(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("reconciliation tick failed", "error", err, "error_kind", application.ErrorKind(err))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick performs one reconciliation pass. A failure to read the due set
// aborts the pass before anything is deactivated. Failures on individual
// meetings are counted in the report and do not stop the pass.
func (r *Reconciler) Tick(ctx context.Context) (TickReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Warn("skipping overlapping reconciliation tick")
		return TickReport{}, ErrTickInProgress
	}
	defer r.running.Store(false)

	var report TickReport
	now := r.now()
	logger := r.logger.With("now", now.UTC().Format(time.RFC3339))

	due, err := r.source.FindDueMeetings(ctx, now)
	if err != nil {
		return report, fmt.Errorf("%w: find due meetings: %v", application.ErrUnavailable, err)
	}
	report.Due = len(due)

	dueIDs := make(map[string]struct{}, len(due))
	for _, meeting := range due {
		dueIDs[meeting.ID] = struct{}{}
		inserted, err := r.engine.Activate(ctx, meeting)
		if err != nil {
			report.Failed++
			logger.Error("failed to activate due meeting", "meeting_id", meeting.ID, "error", err, "error_kind", application.ErrorKind(err))
			continue
		}
		if inserted {
			report.Activated++
		}
	}

	active, err := r.engine.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active meetings: %w", err)
	}

	for _, id := range active {
		if _, ok := dueIDs[id]; ok {
			continue
		}
		events, err := r.engine.Deactivate(ctx, id)
		if errors.Is(err, application.ErrNotFound) {
			continue
		}
		if err != nil {
			report.Failed++
			logger.Error("failed to deactivate expired meeting", "meeting_id", id, "error", err, "error_kind", application.ErrorKind(err))
			continue
		}
		report.Deactivated++
		report.TimeoutEvents += len(events)
	}

	if report.Activated > 0 || report.Deactivated > 0 || report.Failed > 0 {
		logger.Info("reconciliation tick completed",
			"due", report.Due,
			"activated", report.Activated,
			"deactivated", report.Deactivated,
			"failed", report.Failed,
			"timeouts", report.TimeoutEvents,
		)
	} else {
		logger.Debug("reconciliation tick completed", "due", report.Due)
	}
	return report, nil
}
