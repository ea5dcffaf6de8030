package application_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-presence/internal/application"
	"github.com/example/meeting-presence/internal/persistence"
	"github.com/example/meeting-presence/internal/testfixtures"
)

type memoryMeetingRepo struct {
	mu       sync.Mutex
	meetings map[string]application.ScheduledMeeting
	err      error
}

func newMemoryMeetingRepo() *memoryMeetingRepo {
	return &memoryMeetingRepo{meetings: make(map[string]application.ScheduledMeeting)}
}

func (r *memoryMeetingRepo) CreateMeeting(ctx context.Context, meeting application.ScheduledMeeting) (application.ScheduledMeeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return application.ScheduledMeeting{}, r.err
	}
	if _, ok := r.meetings[meeting.ID]; ok {
		return application.ScheduledMeeting{}, fmt.Errorf("insert: %w", persistence.ErrDuplicate)
	}
	r.meetings[meeting.ID] = meeting
	return meeting, nil
}

func (r *memoryMeetingRepo) GetMeeting(ctx context.Context, id string) (application.ScheduledMeeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok {
		return application.ScheduledMeeting{}, persistence.ErrNotFound
	}
	return m, nil
}

func (r *memoryMeetingRepo) ListMeetings(ctx context.Context) ([]application.ScheduledMeeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]application.ScheduledMeeting, 0, len(r.meetings))
	for _, m := range r.meetings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryMeetingRepo) DeleteMeeting(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.meetings, id)
	return nil
}

func TestMeetingService_CreateValidates(t *testing.T) {
	t.Parallel()
	factory := testfixtures.NewServiceFactory()
	svc := factory.NewMeetingService(testfixtures.MeetingServiceDeps{Meetings: newMemoryMeetingRepo()})

	start := testfixtures.ReferenceTime()
	_, err := svc.CreateMeeting(context.Background(), application.MeetingInput{
		Start:        start,
		End:          start.Add(-time.Minute),
		Participants: []string{"not-an-email"},
	})

	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "title")
	assert.Contains(t, vErr.FieldErrors, "end")
	assert.Contains(t, vErr.FieldErrors, "participants")
}

func TestMeetingService_CreateGeneratesIDAndNormalizes(t *testing.T) {
	t.Parallel()
	factory := testfixtures.NewServiceFactory()
	repo := newMemoryMeetingRepo()
	svc := factory.NewMeetingService(testfixtures.MeetingServiceDeps{Meetings: repo})

	input := testfixtures.NewMeetingFixture(testfixtures.WithMeetingID(""), testfixtures.WithMeetingParticipants(" a@x.com", "b@x.com", "a@x.com")).Input()
	input.Title = "  Standup  "

	meeting, err := svc.CreateMeeting(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "meeting-1", meeting.ID)
	assert.Equal(t, "Standup", meeting.Title)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, meeting.Participants)

	stored, err := svc.GetMeeting(context.Background(), "meeting-1")
	require.NoError(t, err)
	assert.Equal(t, meeting, stored)
}

func TestMeetingService_RepositoryErrorsAreMapped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory()
	repo := newMemoryMeetingRepo()
	svc := factory.NewMeetingService(testfixtures.MeetingServiceDeps{Meetings: repo})

	input := testfixtures.NewMeetingFixture(testfixtures.WithMeetingID("dup")).Input()
	_, err := svc.CreateMeeting(ctx, input)
	require.NoError(t, err)
	_, err = svc.CreateMeeting(ctx, input)
	assert.ErrorIs(t, err, application.ErrAlreadyExists)

	_, err = svc.GetMeeting(ctx, "missing")
	assert.ErrorIs(t, err, application.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteMeeting(ctx, "missing"), application.ErrNotFound)

	repo.err = errors.New("disk I/O error")
	_, err = svc.CreateMeeting(ctx, testfixtures.NewMeetingFixture().Input())
	assert.ErrorIs(t, err, application.ErrUnavailable)
}

func TestMeetingService_ListAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory()
	svc := factory.NewMeetingService(testfixtures.MeetingServiceDeps{Meetings: newMemoryMeetingRepo()})

	for _, id := range []string{"b", "a"} {
		_, err := svc.CreateMeeting(ctx, testfixtures.NewMeetingFixture(testfixtures.WithMeetingID(id)).Input())
		require.NoError(t, err)
	}
	list, err := svc.ListMeetings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	require.NoError(t, svc.DeleteMeeting(ctx, "a"))
	list, err = svc.ListMeetings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMeetingService_ActivateNowKeepsJoinedState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	factory := testfixtures.NewServiceFactory()
	lifecycle := factory.NewLifecycleService(&testfixtures.LifecycleDeps{})
	svc := factory.NewMeetingService(testfixtures.MeetingServiceDeps{Meetings: newMemoryMeetingRepo(), Activator: lifecycle})

	_, err := svc.CreateMeeting(ctx, testfixtures.NewMeetingFixture(testfixtures.WithMeetingID("m1")).Input())
	require.NoError(t, err)

	inserted, err := svc.ActivateNow(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, lifecycle.Join(ctx, "a@x.com", "m1"))

	inserted, err = svc.ActivateNow(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, inserted)

	joined, err := lifecycle.Joined(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, joined)

	_, err = svc.ActivateNow(ctx, "missing")
	assert.ErrorIs(t, err, application.ErrNotFound)
}
