package provider

import (
	"context"
	"fmt"
	"sync"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/scheduler"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const MockName = "mock"

type MockOptions struct {
	Scheduler   scheduler.Scheduler
	Signer      *JoinURLSigner
	EventBuffer int
}

// MockProvider keeps meetings in memory. It is the reference backend used in
// development and in tests, and the behavior other backends must match.
type MockProvider struct {
	sched  scheduler.Scheduler
	signer *JoinURLSigner
	events *EventBus

	mu       sync.RWMutex
	meetings map[string]*mockMeeting
}

// mockMeeting guards one meeting and its roster, so capacity checks and
// roster changes of the same meeting are atomic.
type mockMeeting struct {
	mu         sync.Mutex
	meeting    Meeting
	everJoined bool
	removed    bool
	autoEnd    scheduler.Timer
	autoEndGen uint64
}

func NewMockProvider(opts MockOptions) *MockProvider {
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.New(nil)
	}
	if opts.Signer == nil {
		opts.Signer = NewJoinURLSigner("http://localhost:8444", "")
	}
	return &MockProvider{
		sched:    opts.Scheduler,
		signer:   opts.Signer,
		events:   NewEventBus(opts.EventBuffer),
		meetings: make(map[string]*mockMeeting),
	}
}

func (p *MockProvider) Name() string {
	return MockName
}

func (p *MockProvider) Events() *EventBus {
	return p.events
}

func (p *MockProvider) CreateMeeting(ctx context.Context, spec MeetingSpec) (Meeting, error) {
	if err := ValidateSpec(spec); err != nil {
		return Meeting{}, err
	}

	id := uuid.NewString()
	joinURL, err := p.signer.Sign(id, "", "", false)
	if err != nil {
		return Meeting{}, err
	}
	hostURL, err := p.signer.Sign(id, spec.HostID, "", true)
	if err != nil {
		return Meeting{}, err
	}

	mm := &mockMeeting{
		meeting: Meeting{
			ID:           id,
			Provider:     MockName,
			MeetingSpec:  spec,
			Status:       StatusScheduled,
			JoinURL:      joinURL,
			HostURL:      hostURL,
			CreatedAt:    p.sched.Now(),
			Participants: []Participant{},
		},
	}

	p.mu.Lock()
	p.meetings[id] = mm
	p.mu.Unlock()

	mm.mu.Lock()
	defer mm.mu.Unlock()
	p.publishLocked(mm, EventMeetingCreated, nil)
	return mm.snapshot(), nil
}

func (p *MockProvider) UpdateMeeting(ctx context.Context, id string, patch MeetingPatch) (Meeting, error) {
	mm, err := p.acquire(id)
	if err != nil {
		return Meeting{}, err
	}
	defer mm.mu.Unlock()

	if mm.meeting.Status == StatusEnded {
		return Meeting{}, fmt.Errorf("%w: meeting %s", ErrAlreadyEnded, id)
	}
	spec := patch.apply(mm.meeting.MeetingSpec)
	if err := ValidateSpec(spec); err != nil {
		return Meeting{}, err
	}

	durationChanged := spec.Duration != mm.meeting.Duration
	mm.meeting.MeetingSpec = spec
	if durationChanged && mm.meeting.Status == StatusLive {
		p.armAutoEndLocked(mm)
	}

	p.publishLocked(mm, EventMeetingUpdated, nil)
	return mm.snapshot(), nil
}

func (p *MockProvider) DeleteMeeting(ctx context.Context, id string) error {
	mm, err := p.acquire(id)
	if err != nil {
		return err
	}
	defer mm.mu.Unlock()

	if mm.meeting.Status == StatusLive {
		p.endLocked(mm)
	}
	mm.removed = true

	p.mu.Lock()
	delete(p.meetings, id)
	p.mu.Unlock()

	p.publishLocked(mm, EventMeetingDeleted, nil)
	return nil
}

func (p *MockProvider) GetMeetingInfo(ctx context.Context, id string) (Meeting, error) {
	mm, err := p.acquire(id)
	if err != nil {
		return Meeting{}, err
	}
	defer mm.mu.Unlock()
	return mm.snapshot(), nil
}

func (p *MockProvider) GetParticipants(ctx context.Context, id string) ([]Participant, error) {
	mm, err := p.acquire(id)
	if err != nil {
		return nil, err
	}
	defer mm.mu.Unlock()
	return mm.snapshot().Participants, nil
}

// GenerateJoinURL signs a personal link. The link is a host link when the
// user is the host of the meeting.
func (p *MockProvider) GenerateJoinURL(ctx context.Context, id, userID, userName string) (string, error) {
	mm, err := p.acquire(id)
	if err != nil {
		return "", err
	}
	host := userID != "" && (userID == mm.meeting.HostID || lo.ContainsBy(mm.meeting.Participants, func(item Participant) bool {
		return item.IsHost && item.UserID == userID
	}))
	mm.mu.Unlock()

	return p.signer.Sign(id, userID, userName, host)
}

func (p *MockProvider) StartMeeting(ctx context.Context, id string) (Meeting, error) {
	mm, err := p.acquire(id)
	if err != nil {
		return Meeting{}, err
	}
	defer mm.mu.Unlock()

	switch mm.meeting.Status {
	case StatusLive:
		return Meeting{}, fmt.Errorf("%w: meeting %s", ErrAlreadyLive, id)
	case StatusEnded:
		return Meeting{}, fmt.Errorf("%w: meeting %s", ErrAlreadyEnded, id)
	}

	now := p.sched.Now()
	mm.meeting.Status = StatusLive
	mm.meeting.StartedAt = &now
	p.armAutoEndLocked(mm)

	p.publishLocked(mm, EventMeetingStarted, nil)
	return mm.snapshot(), nil
}

func (p *MockProvider) EndMeeting(ctx context.Context, id string) (Meeting, error) {
	mm, err := p.acquire(id)
	if err != nil {
		return Meeting{}, err
	}
	defer mm.mu.Unlock()

	if mm.meeting.Status != StatusEnded {
		p.endLocked(mm)
	}
	return mm.snapshot(), nil
}

func (p *MockProvider) JoinMeeting(ctx context.Context, id string, spec ParticipantSpec) (Participant, error) {
	if err := ValidateParticipant(spec); err != nil {
		return Participant{}, err
	}

	mm, err := p.acquire(id)
	if err != nil {
		return Participant{}, err
	}
	defer mm.mu.Unlock()

	if mm.meeting.Status == StatusEnded {
		RejectedJoinsTotal.WithLabelValues("ended").Inc()
		return Participant{}, fmt.Errorf("%w: meeting %s", ErrAlreadyEnded, id)
	}
	if _, ok := mm.activeIndex(spec.UserID); ok {
		RejectedJoinsTotal.WithLabelValues("duplicate").Inc()
		return Participant{}, fmt.Errorf("%w: user %s in meeting %s", ErrAlreadyJoined, spec.UserID, id)
	}
	if limit := mm.meeting.MaxAttendees; limit > 0 && mm.meeting.ActiveCount() >= limit {
		RejectedJoinsTotal.WithLabelValues("capacity").Inc()
		return Participant{}, fmt.Errorf("%w: meeting %s allows %d attendees", ErrCapacityExceeded, id, limit)
	}

	name := spec.Name
	if name == "" {
		name = spec.UserID
	}
	entry := Participant{
		ID:           uuid.NewString(),
		UserID:       spec.UserID,
		Name:         name,
		JoinedAt:     p.sched.Now(),
		IsHost:       !mm.everJoined,
		AudioEnabled: spec.AudioEnabled,
		VideoEnabled: spec.VideoEnabled,
		IsActive:     true,
	}
	mm.everJoined = true
	mm.meeting.Participants = append(mm.meeting.Participants, entry)

	p.publishLocked(mm, EventParticipantJoined, &entry)
	return entry, nil
}

func (p *MockProvider) LeaveMeeting(ctx context.Context, id, userID string) (Participant, error) {
	mm, err := p.acquire(id)
	if err != nil {
		return Participant{}, err
	}
	defer mm.mu.Unlock()

	idx, ok := mm.activeIndex(userID)
	if !ok {
		return Participant{}, fmt.Errorf("%w: user %s is not in meeting %s", ErrNotFound, userID, id)
	}
	entry := p.leaveLocked(mm, idx)
	return entry, nil
}

// acquire looks up a meeting and returns it locked.
func (p *MockProvider) acquire(id string) (*mockMeeting, error) {
	p.mu.RLock()
	mm, ok := p.meetings[id]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: meeting %s", ErrNotFound, id)
	}

	mm.mu.Lock()
	if mm.removed {
		mm.mu.Unlock()
		return nil, fmt.Errorf("%w: meeting %s", ErrNotFound, id)
	}
	return mm, nil
}

func (p *MockProvider) leaveLocked(mm *mockMeeting, idx int) Participant {
	now := p.sched.Now()
	entry := &mm.meeting.Participants[idx]
	entry.LeftAt = &now
	entry.Duration = now.Sub(entry.JoinedAt)
	entry.IsActive = false

	left := *entry
	p.publishLocked(mm, EventParticipantLeft, &left)
	return left
}

func (p *MockProvider) endLocked(mm *mockMeeting) {
	for idx := range mm.meeting.Participants {
		if mm.meeting.Participants[idx].IsActive {
			p.leaveLocked(mm, idx)
		}
	}

	now := p.sched.Now()
	mm.meeting.Status = StatusEnded
	mm.meeting.EndedAt = &now
	if mm.autoEnd != nil {
		mm.autoEnd.Stop()
		mm.autoEnd = nil
	}
	mm.autoEndGen++

	p.publishLocked(mm, EventMeetingEnded, nil)
}

// armAutoEndLocked schedules the end of a live meeting at start time plus
// its duration, replacing any earlier schedule.
func (p *MockProvider) armAutoEndLocked(mm *mockMeeting) {
	if mm.autoEnd != nil {
		mm.autoEnd.Stop()
	}
	mm.autoEndGen++
	gen := mm.autoEndGen

	remaining := mm.meeting.StartedAt.Add(mm.meeting.ScheduledDuration()).Sub(p.sched.Now())
	if remaining < 0 {
		remaining = 0
	}
	mm.autoEnd = p.sched.AfterFunc(remaining, func() {
		mm.mu.Lock()
		defer mm.mu.Unlock()

		// A reschedule or an explicit end superseded this timer.
		if mm.removed || gen != mm.autoEndGen || mm.meeting.Status != StatusLive {
			return
		}
		log.Info().Str("meeting", mm.meeting.ID).Msg("Meeting reached its scheduled duration, ending...")
		p.endLocked(mm)
	})
}

func (p *MockProvider) publishLocked(mm *mockMeeting, kind EventType, participant *Participant) {
	p.events.Publish(Event{
		Type:        kind,
		Provider:    MockName,
		MeetingID:   mm.meeting.ID,
		At:          p.sched.Now(),
		Meeting:     mm.snapshot(),
		Participant: participant,
	})
}

func (mm *mockMeeting) activeIndex(userID string) (int, bool) {
	for idx, item := range mm.meeting.Participants {
		if item.IsActive && item.UserID == userID {
			return idx, true
		}
	}
	return -1, false
}

// snapshot copies the meeting. LeftAt pointers are shared with the store,
// they are only ever replaced and never written through.
func (mm *mockMeeting) snapshot() Meeting {
	out := mm.meeting
	out.Participants = make([]Participant, len(mm.meeting.Participants))
	copy(out.Participants, mm.meeting.Participants)
	return out
}

var _ Provider = (*MockProvider)(nil)
