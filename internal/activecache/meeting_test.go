package activecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveMeeting_JoinRequiresInvitation(t *testing.T) {
	m := NewActiveMeeting("m1", []string{"a@x.com"})

	assert.False(t, m.Join("c@x.com"))
	assert.Empty(t, m.JoinedList())

	assert.True(t, m.Join("a@x.com"))
	assert.True(t, m.Join("a@x.com"), "rejoining is a no-op success")
	assert.Equal(t, []string{"a@x.com"}, m.JoinedList())
}

func TestActiveMeeting_Leave(t *testing.T) {
	m := NewActiveMeeting("m1", []string{"a@x.com", "b@x.com"})
	m.Join("a@x.com")

	assert.False(t, m.Leave("b@x.com"))
	assert.True(t, m.Leave("a@x.com"))
	assert.False(t, m.Leave("a@x.com"))
	assert.Empty(t, m.JoinedList())
}

func TestActiveMeeting_JoinedStaysSubsetOfInvited(t *testing.T) {
	m := NewActiveMeeting("m1", []string{"a@x.com", "b@x.com"})
	for _, email := range []string{"a@x.com", "z@x.com", "b@x.com", "y@x.com"} {
		m.Join(email)
	}
	for email := range m.Joined {
		assert.True(t, m.IsInvited(email), "%s joined without invitation", email)
	}
}

func TestActiveMeeting_CloneIsDeep(t *testing.T) {
	m := NewActiveMeeting("m1", []string{"a@x.com"})
	c := m.Clone()
	c.Join("a@x.com")
	delete(c.Invited, "a@x.com")

	assert.Empty(t, m.JoinedList())
	assert.Equal(t, []string{"a@x.com"}, m.InvitedList())
}
