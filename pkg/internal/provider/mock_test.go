package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/scheduler"
	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*MockProvider, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	return NewMockProvider(MockOptions{
		Scheduler: scheduler.New(mock),
		Signer:    NewJoinURLSigner("https://meet.example.com", "secret"),
	}), mock
}

func validSpec(mock *clock.Mock) MeetingSpec {
	return MeetingSpec{
		Title:       "Weekly sync",
		ScheduledAt: mock.Now().Add(time.Hour),
		Duration:    30,
		HostID:      "host",
	}
}

func TestMockProvider_CreateMeeting(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	meeting, err := p.CreateMeeting(ctx, validSpec(mock))
	require.NoError(t, err)

	assert.NotEmpty(t, meeting.ID)
	assert.Equal(t, StatusScheduled, meeting.Status)
	assert.Equal(t, MockName, meeting.Provider)
	assert.Contains(t, meeting.JoinURL, meeting.ID)
	assert.Contains(t, meeting.HostURL, "host=true")
	assert.Empty(t, meeting.Participants)

	info, err := p.GetMeetingInfo(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, meeting.Title, info.Title)
}

func TestMockProvider_CreateMeetingValidation(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*MeetingSpec)
		field  string
	}{
		{"missing title", func(s *MeetingSpec) { s.Title = "" }, "title"},
		{"missing time", func(s *MeetingSpec) { s.ScheduledAt = time.Time{} }, "scheduled_at"},
		{"zero duration", func(s *MeetingSpec) { s.Duration = 0 }, "duration"},
		{"negative capacity", func(s *MeetingSpec) { s.MaxAttendees = -1 }, "max_attendees"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec(mock)
			tt.mutate(&spec)

			_, err := p.CreateMeeting(ctx, spec)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestMockProvider_UnknownMeeting(t *testing.T) {
	p, _ := newMock(t)
	ctx := context.Background()

	_, err := p.GetMeetingInfo(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.GetParticipants(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.UpdateMeeting(ctx, "nope", MeetingPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, p.DeleteMeeting(ctx, "nope"), ErrNotFound)
	_, err = p.StartMeeting(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.GenerateJoinURL(ctx, "nope", "u", "U")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockProvider_StartTwiceFails(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	meeting, err := p.CreateMeeting(ctx, validSpec(mock))
	require.NoError(t, err)

	started, err := p.StartMeeting(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusLive, started.Status)
	require.NotNil(t, started.StartedAt)

	_, err = p.StartMeeting(ctx, meeting.ID)
	assert.ErrorIs(t, err, ErrAlreadyLive)

	_, err = p.EndMeeting(ctx, meeting.ID)
	require.NoError(t, err)
	_, err = p.StartMeeting(ctx, meeting.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnded)
}

func TestMockProvider_EndIsIdempotent(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	meeting, err := p.CreateMeeting(ctx, validSpec(mock))
	require.NoError(t, err)
	_, err = p.StartMeeting(ctx, meeting.ID)
	require.NoError(t, err)

	first, err := p.EndMeeting(ctx, meeting.ID)
	require.NoError(t, err)
	mock.Add(time.Minute)
	second, err := p.EndMeeting(ctx, meeting.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusEnded, second.Status)
	assert.Equal(t, first.EndedAt, second.EndedAt)
}

func TestMockProvider_CapacityScenario(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	spec := validSpec(mock)
	spec.MaxAttendees = 1
	meeting, err := p.CreateMeeting(ctx, spec)
	require.NoError(t, err)

	a, err := p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: "a", Name: "Alice"})
	require.NoError(t, err)
	assert.True(t, a.IsHost)
	assert.True(t, a.IsActive)

	_, err = p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: "b", Name: "Bob"})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	mock.Add(5 * time.Minute)
	left, err := p.LeaveMeeting(ctx, meeting.ID, "a")
	require.NoError(t, err)
	assert.False(t, left.IsActive)
	require.NotNil(t, left.LeftAt)
	assert.Equal(t, 5*time.Minute, left.Duration)

	b, err := p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: "b", Name: "Bob"})
	require.NoError(t, err)
	assert.False(t, b.IsHost, "only the first joiner ever is host")

	roster, err := p.GetParticipants(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 2, "departed entries stay in the roster")
}

func TestMockProvider_JoinRules(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	meeting, err := p.CreateMeeting(ctx, validSpec(mock))
	require.NoError(t, err)

	_, err = p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: "a"})
	require.NoError(t, err)
	_, err = p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: "a"})
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	_, err = p.LeaveMeeting(ctx, meeting.ID, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.LeaveMeeting(ctx, meeting.ID, "a")
	require.NoError(t, err)
	_, err = p.LeaveMeeting(ctx, meeting.ID, "a")
	assert.ErrorIs(t, err, ErrNotFound, "leaving twice is rejected")

	rejoined, err := p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", rejoined.Name)

	_, err = p.EndMeeting(ctx, meeting.ID)
	require.NoError(t, err)
	_, err = p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: "c"})
	assert.ErrorIs(t, err, ErrAlreadyEnded)
}

func TestMockProvider_ConcurrentJoinsRespectCapacity(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	spec := validSpec(mock)
	spec.MaxAttendees = 5
	meeting, err := p.CreateMeeting(ctx, spec)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined, rejected := 0, 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: lo.RandomString(12, lo.AlphanumericCharset)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				joined++
			} else if errors.Is(err, ErrCapacityExceeded) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, joined)
	assert.Equal(t, 45, rejected)

	roster, err := p.GetParticipants(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 5)
	assert.Len(t, lo.Filter(roster, func(item Participant, _ int) bool { return item.IsHost }), 1)
}

func TestMockProvider_EndForcesLeave(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	meeting, err := p.CreateMeeting(ctx, validSpec(mock))
	require.NoError(t, err)
	_, err = p.StartMeeting(ctx, meeting.ID)
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		_, err := p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: id})
		require.NoError(t, err)
	}
	mock.Add(10 * time.Minute)

	ended, err := p.EndMeeting(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, ended.Status)
	for _, item := range ended.Participants {
		assert.False(t, item.IsActive)
		require.NotNil(t, item.LeftAt)
		assert.Equal(t, 10*time.Minute, item.Duration)
	}
}

func TestMockProvider_AutoEndsAfterDuration(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	spec := validSpec(mock)
	spec.Duration = 1
	meeting, err := p.CreateMeeting(ctx, spec)
	require.NoError(t, err)

	sub := p.Events().Subscribe(meeting.ID)
	defer sub.Close()

	_, err = p.StartMeeting(ctx, meeting.ID)
	require.NoError(t, err)
	_, err = p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: "a"})
	require.NoError(t, err)

	mock.Add(59 * time.Second)
	info, err := p.GetMeetingInfo(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusLive, info.Status)

	mock.Add(time.Second)
	require.Eventually(t, func() bool {
		info, err := p.GetMeetingInfo(ctx, meeting.ID)
		return err == nil && info.Status == StatusEnded
	}, time.Second, 5*time.Millisecond)

	roster, err := p.GetParticipants(ctx, meeting.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.NotNil(t, roster[0].LeftAt)
	assert.Equal(t, time.Minute, roster[0].Duration)

	var kinds []EventType
	for len(sub.C) > 0 {
		kinds = append(kinds, (<-sub.C).Type)
	}
	assert.Equal(t, []EventType{
		EventMeetingStarted,
		EventParticipantJoined,
		EventParticipantLeft,
		EventMeetingEnded,
	}, kinds)
}

func TestMockProvider_ExplicitEndCancelsAutoEnd(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	spec := validSpec(mock)
	spec.Duration = 1
	meeting, err := p.CreateMeeting(ctx, spec)
	require.NoError(t, err)
	_, err = p.StartMeeting(ctx, meeting.ID)
	require.NoError(t, err)

	mock.Add(30 * time.Second)
	ended, err := p.EndMeeting(ctx, meeting.ID)
	require.NoError(t, err)

	mock.Add(time.Minute)
	time.Sleep(10 * time.Millisecond)

	info, err := p.GetMeetingInfo(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, ended.EndedAt, info.EndedAt)
}

func TestMockProvider_ExtendedMeetingIgnoresFiredTimer(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	spec := validSpec(mock)
	spec.Duration = 1
	meeting, err := p.CreateMeeting(ctx, spec)
	require.NoError(t, err)
	_, err = p.StartMeeting(ctx, meeting.ID)
	require.NoError(t, err)

	p.mu.RLock()
	mm := p.meetings[meeting.ID]
	p.mu.RUnlock()

	// The old timer fires while an extension holds the meeting lock.
	mm.mu.Lock()
	mock.Add(time.Minute)
	mm.meeting.Duration = 10
	p.armAutoEndLocked(mm)
	mm.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	info, err := p.GetMeetingInfo(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusLive, info.Status)

	mock.Add(9 * time.Minute)
	require.Eventually(t, func() bool {
		info, err := p.GetMeetingInfo(ctx, meeting.ID)
		return err == nil && info.Status == StatusEnded
	}, time.Second, 5*time.Millisecond)
}

func TestMockProvider_UpdateExtendsLiveMeeting(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	spec := validSpec(mock)
	spec.Duration = 1
	meeting, err := p.CreateMeeting(ctx, spec)
	require.NoError(t, err)
	_, err = p.StartMeeting(ctx, meeting.ID)
	require.NoError(t, err)

	mock.Add(30 * time.Second)
	_, err = p.UpdateMeeting(ctx, meeting.ID, MeetingPatch{Duration: lo.ToPtr(5)})
	require.NoError(t, err)

	mock.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	info, err := p.GetMeetingInfo(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusLive, info.Status)
}

func TestMockProvider_UpdateMeeting(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	meeting, err := p.CreateMeeting(ctx, validSpec(mock))
	require.NoError(t, err)

	updated, err := p.UpdateMeeting(ctx, meeting.ID, MeetingPatch{
		Title:        lo.ToPtr("Retro"),
		MaxAttendees: lo.ToPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "Retro", updated.Title)
	assert.Equal(t, 10, updated.MaxAttendees)
	assert.Equal(t, 30, updated.Duration)

	_, err = p.UpdateMeeting(ctx, meeting.ID, MeetingPatch{Duration: lo.ToPtr(0)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.EndMeeting(ctx, meeting.ID)
	require.NoError(t, err)
	_, err = p.UpdateMeeting(ctx, meeting.ID, MeetingPatch{Title: lo.ToPtr("Late")})
	assert.ErrorIs(t, err, ErrAlreadyEnded)
}

func TestMockProvider_DeleteLiveMeetingEndsFirst(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	meeting, err := p.CreateMeeting(ctx, validSpec(mock))
	require.NoError(t, err)
	_, err = p.StartMeeting(ctx, meeting.ID)
	require.NoError(t, err)
	_, err = p.JoinMeeting(ctx, meeting.ID, ParticipantSpec{UserID: "a"})
	require.NoError(t, err)

	sub := p.Events().Subscribe(AllTopics)
	defer sub.Close()

	require.NoError(t, p.DeleteMeeting(ctx, meeting.ID))

	_, err = p.GetMeetingInfo(ctx, meeting.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var kinds []EventType
	for len(sub.C) > 0 {
		kinds = append(kinds, (<-sub.C).Type)
	}
	assert.Equal(t, []EventType{EventParticipantLeft, EventMeetingEnded, EventMeetingDeleted}, kinds)
}

func TestMockProvider_GenerateJoinURL(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	meeting, err := p.CreateMeeting(ctx, validSpec(mock))
	require.NoError(t, err)

	first, err := p.GenerateJoinURL(ctx, meeting.ID, "u1", "User One")
	require.NoError(t, err)
	second, err := p.GenerateJoinURL(ctx, meeting.ID, "u1", "User One")
	require.NoError(t, err)
	assert.Equal(t, first, second, "join urls are deterministic")
	assert.Contains(t, first, "user=u1")
	assert.NotContains(t, first, "host=true")

	hostURL, err := p.GenerateJoinURL(ctx, meeting.ID, "host", "Host")
	require.NoError(t, err)
	assert.Contains(t, hostURL, "host=true")
}
