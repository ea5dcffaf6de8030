package activecache

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no active meeting exists for the id.
	ErrNotFound = errors.New("activecache: meeting not active")
	// ErrConflict is returned when an optimistic update kept losing to
	// concurrent writers and gave up.
	ErrConflict = errors.New("activecache: concurrent modification")
)

// Store is the contract shared by the in-memory and Redis caches.
type Store interface {
	// Insert stores the meeting only if its id is absent and reports whether
	// it did. An existing entry is never overwritten.
	Insert(ctx context.Context, meeting ActiveMeeting) (bool, error)
	Get(ctx context.Context, id string) (ActiveMeeting, error)
	// Update applies fn to the current entry atomically. Returning an error
	// from fn aborts the write and the error is returned unchanged.
	Update(ctx context.Context, id string, fn func(*ActiveMeeting) error) (ActiveMeeting, error)
	// Delete removes the entry and returns its final state.
	Delete(ctx context.Context, id string) (ActiveMeeting, error)
	IDs(ctx context.Context) ([]string, error)
	List(ctx context.Context) ([]ActiveMeeting, error)
}
