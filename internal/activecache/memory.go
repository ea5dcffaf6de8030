package activecache

import (
	"context"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps active meetings in process memory. The map itself is
// guarded by a RWMutex held only for lookups and structural changes; the
// read-modify-write in Update runs under a per-id lock so slow callbacks on
// one meeting never stall another.
type MemoryStore struct {
	mu       sync.RWMutex
	meetings map[string]*ActiveMeeting
	keys     *KeyedMutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meetings: make(map[string]*ActiveMeeting),
		keys:     NewKeyedMutex(),
	}
}

// Insert stores a copy of meeting unless its id is already present.
func (s *MemoryStore) Insert(ctx context.Context, meeting ActiveMeeting) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	unlock := s.keys.Lock(meeting.ID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[meeting.ID]; ok {
		return false, nil
	}
	stored := meeting.Clone()
	s.meetings[meeting.ID] = &stored
	return true, nil
}

// Get returns a copy of the meeting stored under id.
func (s *MemoryStore) Get(ctx context.Context, id string) (ActiveMeeting, error) {
	if err := ctx.Err(); err != nil {
		return ActiveMeeting{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return ActiveMeeting{}, ErrNotFound
	}
	return m.Clone(), nil
}

// Update runs fn on a working copy under the id lock and stores the copy
// only when fn succeeds.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*ActiveMeeting) error) (ActiveMeeting, error) {
	if err := ctx.Err(); err != nil {
		return ActiveMeeting{}, err
	}
	unlock := s.keys.Lock(id)
	defer unlock()

	s.mu.RLock()
	current, ok := s.meetings[id]
	s.mu.RUnlock()
	if !ok {
		return ActiveMeeting{}, ErrNotFound
	}

	working := current.Clone()
	if err := fn(&working); err != nil {
		return ActiveMeeting{}, err
	}
	working.ID = id

	s.mu.Lock()
	s.meetings[id] = &working
	s.mu.Unlock()
	return working.Clone(), nil
}

// Delete removes the meeting and returns its last state.
func (s *MemoryStore) Delete(ctx context.Context, id string) (ActiveMeeting, error) {
	if err := ctx.Err(); err != nil {
		return ActiveMeeting{}, err
	}
	unlock := s.keys.Lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return ActiveMeeting{}, ErrNotFound
	}
	delete(s.meetings, id)
	return m.Clone(), nil
}

// IDs returns the active meeting ids in ascending order.
func (s *MemoryStore) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.meetings))
	for id := range s.meetings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// List returns copies of every active meeting ordered by id.
func (s *MemoryStore) List(ctx context.Context) ([]ActiveMeeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ActiveMeeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
