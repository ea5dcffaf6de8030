package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-presence/internal/persistence"
)

const meetingColumns = `id, title, description, start_ms, end_ms, latitude, longitude, participants, created_at_ms`

// CreateMeeting inserts a new meeting into the schedule.
func (s *Storage) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if strings.TrimSpace(meeting.ID) == "" {
		return persistence.ErrConstraintViolation
	}
	if meeting.End.Before(meeting.Start) {
		return persistence.ErrConstraintViolation
	}
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meetings (`+meetingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meeting.ID,
		meeting.Title,
		meeting.Description,
		meeting.Start.UnixMilli(),
		meeting.End.UnixMilli(),
		meeting.Latitude,
		meeting.Longitude,
		meeting.Participants,
		meeting.CreatedAt.UnixMilli(),
	)
	return mapError(err)
}

// GetMeeting retrieves a meeting by ID.
func (s *Storage) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	if id == "" {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	meeting, err := scanMeeting(row)
	if err != nil {
		return persistence.Meeting{}, mapError(err)
	}
	return meeting, nil
}

// ListMeetings returns every meeting ordered by start time then ID.
func (s *Storage) ListMeetings(ctx context.Context) ([]persistence.Meeting, error) {
	return s.queryMeetings(ctx, `SELECT `+meetingColumns+` FROM meetings ORDER BY start_ms, id`)
}

// DeleteMeeting removes a meeting from the schedule.
func (s *Storage) DeleteMeeting(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// FindDueMeetings returns the meetings whose window contains now. Both
// bounds are inclusive. The result is read in a single statement so callers
// see one consistent snapshot.
func (s *Storage) FindDueMeetings(ctx context.Context, now time.Time) ([]persistence.Meeting, error) {
	ms := now.UnixMilli()
	return s.queryMeetings(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE start_ms <= ? AND end_ms >= ? ORDER BY id`, ms, ms)
}

func (s *Storage) queryMeetings(ctx context.Context, query string, args ...any) ([]persistence.Meeting, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, mapError(err)
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return meetings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var (
		meeting                   persistence.Meeting
		startMs, endMs, createdMs int64
	)
	if err := row.Scan(
		&meeting.ID,
		&meeting.Title,
		&meeting.Description,
		&startMs,
		&endMs,
		&meeting.Latitude,
		&meeting.Longitude,
		&meeting.Participants,
		&createdMs,
	); err != nil {
		if err == sql.ErrNoRows {
			return persistence.Meeting{}, persistence.ErrNotFound
		}
		return persistence.Meeting{}, err
	}
	meeting.Start = time.UnixMilli(startMs).UTC()
	meeting.End = time.UnixMilli(endMs).UTC()
	meeting.CreatedAt = time.UnixMilli(createdMs).UTC()
	return meeting, nil
}
