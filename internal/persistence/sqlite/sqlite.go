// Package sqlite implements the durable meeting schedule and the audit log
// on top of the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/example/meeting-presence/internal/persistence"
)

var (
	_ persistence.MeetingRepository = (*Storage)(nil)
	_ persistence.AuditRepository   = (*Storage)(nil)
)

// Storage owns the SQLite connection pool and implements the persistence
// repositories.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the database identified by dsn with default settings.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(DefaultConnectionConfig(dsn), nil)
}

// OpenWithConfig connects using explicit connection settings.
func OpenWithConfig(cfg ConnectionConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db, logger: logger.With("component", "sqlite")}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies any embedded migrations that have not run yet.
func (s *Storage) Migrate(ctx context.Context) error {
	return s.runMigrations(ctx)
}
