package activecache

import "sort"

// ActiveMeeting is the cache-resident projection of a scheduled meeting.
type ActiveMeeting struct {
	ID          string
	Title       string
	Description string
	StartMs     int64
	EndMs       int64
	Latitude    float64
	Longitude   float64
	Invited     map[string]struct{}
	Joined      map[string]struct{}
}

// NewActiveMeeting returns a meeting with the given invited set and nobody joined.
func NewActiveMeeting(id string, invited []string) ActiveMeeting {
	m := ActiveMeeting{
		ID:      id,
		Invited: make(map[string]struct{}, len(invited)),
		Joined:  make(map[string]struct{}),
	}
	for _, email := range invited {
		m.Invited[email] = struct{}{}
	}
	return m
}

// IsInvited reports whether email may join the meeting.
func (m ActiveMeeting) IsInvited(email string) bool {
	_, ok := m.Invited[email]
	return ok
}

// IsJoined reports whether email is currently present in the meeting.
func (m ActiveMeeting) IsJoined(email string) bool {
	_, ok := m.Joined[email]
	return ok
}

// Join adds email to the joined set. It reports false without mutating the
// meeting when email is not invited.
func (m *ActiveMeeting) Join(email string) bool {
	if !m.IsInvited(email) {
		return false
	}
	if m.Joined == nil {
		m.Joined = make(map[string]struct{})
	}
	m.Joined[email] = struct{}{}
	return true
}

// Leave removes email from the joined set and reports whether it was present.
func (m *ActiveMeeting) Leave(email string) bool {
	if !m.IsJoined(email) {
		return false
	}
	delete(m.Joined, email)
	return true
}

// JoinedList returns the joined emails sorted for stable output.
func (m ActiveMeeting) JoinedList() []string {
	return sortedKeys(m.Joined)
}

// InvitedList returns the invited emails sorted for stable output.
func (m ActiveMeeting) InvitedList() []string {
	return sortedKeys(m.Invited)
}

// Clone returns a deep copy so callers never share set maps with the store.
func (m ActiveMeeting) Clone() ActiveMeeting {
	out := m
	out.Invited = cloneSet(m.Invited)
	out.Joined = cloneSet(m.Joined)
	return out
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return []string{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
