package activecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, WithMaxRetries(64)),
	}
}

func sampleMeeting(id string, invited ...string) ActiveMeeting {
	m := NewActiveMeeting(id, invited)
	m.Title = "title " + id
	m.StartMs = 1_000
	m.EndMs = 2_000
	m.Latitude = 10
	m.Longitude = 20
	return m
}

func TestStore_InsertIsIdempotent(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			inserted, err := store.Insert(ctx, sampleMeeting("m1", "a@x.com", "b@x.com"))
			require.NoError(t, err)
			assert.True(t, inserted)

			_, err = store.Update(ctx, "m1", func(m *ActiveMeeting) error {
				require.True(t, m.Join("a@x.com"))
				return nil
			})
			require.NoError(t, err)

			inserted, err = store.Insert(ctx, sampleMeeting("m1", "a@x.com", "b@x.com"))
			require.NoError(t, err)
			assert.False(t, inserted)

			got, err := store.Get(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, []string{"a@x.com"}, got.JoinedList(), "re-insert must not reset joined state")
		})
	}
}

func TestStore_GetRoundTripsFields(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleMeeting("m1", "a@x.com", "b@x.com")
			want.Description = "desc"

			_, err := store.Insert(ctx, want)
			require.NoError(t, err)

			got, err := store.Get(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, want.Title, got.Title)
			assert.Equal(t, want.Description, got.Description)
			assert.Equal(t, want.StartMs, got.StartMs)
			assert.Equal(t, want.EndMs, got.EndMs)
			assert.Equal(t, want.Latitude, got.Latitude)
			assert.Equal(t, want.Longitude, got.Longitude)
			assert.Equal(t, []string{"a@x.com", "b@x.com"}, got.InvitedList())
			assert.Empty(t, got.JoinedList())
		})
	}
}

func TestStore_MissingMeeting(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "ghost")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.Update(ctx, "ghost", func(*ActiveMeeting) error { return nil })
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.Delete(ctx, "ghost")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_UpdateCallbackErrorAbortsWrite(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.Insert(ctx, sampleMeeting("m1", "a@x.com"))
			require.NoError(t, err)

			boom := errors.New("boom")
			_, err = store.Update(ctx, "m1", func(m *ActiveMeeting) error {
				m.Join("a@x.com")
				return boom
			})
			require.ErrorIs(t, err, boom)

			got, err := store.Get(ctx, "m1")
			require.NoError(t, err)
			assert.Empty(t, got.JoinedList())
		})
	}
}

func TestStore_DeleteReturnsFinalState(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.Insert(ctx, sampleMeeting("m1", "a@x.com", "b@x.com"))
			require.NoError(t, err)
			_, err = store.Insert(ctx, sampleMeeting("m2", "c@x.com"))
			require.NoError(t, err)
			_, err = store.Update(ctx, "m1", func(m *ActiveMeeting) error {
				m.Join("b@x.com")
				return nil
			})
			require.NoError(t, err)

			removed, err := store.Delete(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, []string{"b@x.com"}, removed.JoinedList())

			ids, err := store.IDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"m2"}, ids)

			list, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "m2", list[0].ID)
		})
	}
}

func TestStore_ConcurrentJoinsAreNotLost(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const n = 20
			invited := make([]string, n)
			for i := range invited {
				invited[i] = fmt.Sprintf("user%02d@x.com", i)
			}
			_, err := store.Insert(ctx, sampleMeeting("m1", invited...))
			require.NoError(t, err)

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for _, email := range invited {
				wg.Add(1)
				go func(email string) {
					defer wg.Done()
					_, err := store.Update(ctx, "m1", func(m *ActiveMeeting) error {
						m.Join(email)
						return nil
					})
					errs <- err
				}(email)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			got, err := store.Get(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, invited, got.JoinedList())
		})
	}
}

func TestStore_ReturnedMeetingsAreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.Insert(ctx, sampleMeeting("m1", "a@x.com"))
	require.NoError(t, err)

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	got.Joined["a@x.com"] = struct{}{}

	again, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, again.JoinedList())
}

func TestRedisStore_ListSkipsUndecodableRecords(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)
	ctx := context.Background()

	_, err := store.Insert(ctx, sampleMeeting("good", "a@x.com"))
	require.NoError(t, err)
	require.NoError(t, mr.Set("active_meeting:bad", "\xff\x00not cbor"))
	_, err = mr.SAdd("active_meeting", "bad")
	require.NoError(t, err)

	meetings, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "good", meetings[0].ID)

	ids, err := store.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad", "good"}, ids)
}
