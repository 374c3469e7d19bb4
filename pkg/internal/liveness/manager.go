// Package liveness tracks whether a participant is really present in a
// meeting. One Manager runs per (user, meeting) connection attempt: it turns
// activity signals into Active/Idle transitions, emits heartbeats on a fixed
// cadence and reports a session as Disconnected when heartbeats keep failing.
package liveness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/scheduler"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// DeliveryFunc hands a heartbeat to the durable store. It must respect ctx.
type DeliveryFunc func(ctx context.Context, hb Heartbeat) error

// StateFunc observes session transitions. It runs outside the manager lock
// but must not call Stop synchronously. Transitions caused from inside the
// callback are delivered after it returns.
type StateFunc func(change StateChange)

type ManagerOptions struct {
	UserID    string
	MeetingID string
	// SessionID identifies this connection attempt. Generated when empty.
	SessionID string

	Config      Config
	Scheduler   scheduler.Scheduler
	Source      ActivitySource
	Prober      Prober
	Environment Environment

	Deliver       DeliveryFunc
	OnStateChange StateFunc
}

// Stats is a snapshot of the counters of a session.
type Stats struct {
	SessionID          string        `json:"session_id"`
	UserID             string        `json:"user_id"`
	MeetingID          string        `json:"meeting_id"`
	State              State         `json:"state"`
	JoinedAt           time.Time     `json:"joined_at"`
	EndedAt            *time.Time    `json:"ended_at,omitempty"`
	IdleTime           time.Duration `json:"idle_time"`
	HeartbeatsSent     int           `json:"heartbeats_sent"`
	HeartbeatsFailed   int           `json:"heartbeats_failed"`
	ConsecutiveMissed  int           `json:"consecutive_missed"`
	Interactions       int           `json:"interactions"`
	LastInteraction    time.Time     `json:"last_interaction"`
	LastHeartbeatStamp time.Time     `json:"last_heartbeat"`
}

type Manager struct {
	userID    string
	meetingID string
	sessionID string

	cfg     Config
	sched   scheduler.Scheduler
	source  ActivitySource
	prober  Prober
	env     Environment
	deliver DeliveryFunc
	onState StateFunc
	agg     *Aggregator

	mu          sync.Mutex
	state       State
	started     bool
	joinedAt    time.Time
	endedAt     time.Time
	idleSince   time.Time
	idleTotal   time.Duration
	lastBeat    time.Time
	missed      int
	sent        int
	failed      int
	idleGen     uint64
	idleTimer   scheduler.Timer
	beatTimer   scheduler.Timer
	unsubscribe func()
	pending     []StateChange
	notifying   bool

	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	inflight conc.WaitGroup
}

// NewManager builds a session in the Joined state. Timers and listeners are
// only attached by Start.
func NewManager(opts ManagerOptions) *Manager {
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.New(nil)
	}
	if opts.Prober == nil {
		opts.Prober = staticProber(QualityGood)
	}
	if opts.Environment == nil {
		opts.Environment = Foreground{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := opts.Scheduler.Now()

	return &Manager{
		userID:    opts.UserID,
		meetingID: opts.MeetingID,
		sessionID: opts.SessionID,
		cfg:       opts.Config.WithDefaults(),
		sched:     opts.Scheduler,
		source:    opts.Source,
		prober:    opts.Prober,
		env:       opts.Environment,
		deliver:   opts.Deliver,
		onState:   opts.OnStateChange,
		agg:       NewAggregator(opts.Scheduler),
		state:     StateJoined,
		joinedAt:  now,
		lastBeat:  now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (m *Manager) SessionID() string { return m.sessionID }
func (m *Manager) UserID() string    { return m.userID }
func (m *Manager) MeetingID() string { return m.meetingID }
func (m *Manager) Config() Config    { return m.cfg }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start arms the idle and heartbeat timers and attaches the activity source.
// Calling it again, or after Stop, does nothing.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started || m.state == StateEnded {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.resetIdleTimerLocked()
	m.beatTimer = m.sched.Every(m.cfg.HeartbeatInterval, m.tick)
	m.mu.Unlock()

	ActiveSessions.Inc()
	log.Debug().
		Str("session", m.sessionID).
		Str("meeting", m.meetingID).
		Str("user", m.userID).
		Msg("Liveness session started.")

	if m.source == nil {
		return
	}
	cancel := m.source.Subscribe(m.onSignal)

	m.mu.Lock()
	if m.state == StateEnded {
		m.mu.Unlock()
		cancel()
		return
	}
	m.unsubscribe = cancel
	m.mu.Unlock()
}

// Stop cancels every timer, detaches the activity source, waits for
// in-flight heartbeat deliveries and moves the session to Ended. It is safe
// to call more than once and from several goroutines.
func (m *Manager) Stop() {
	m.stopOnce.Do(m.teardown)
}

func (m *Manager) teardown() {
	m.mu.Lock()
	wasStarted := m.started
	m.transitionLocked(StateEnded)
	m.endedAt = m.sched.Now()
	m.idleGen++
	m.pending = nil
	idle, beat, unsub := m.idleTimer, m.beatTimer, m.unsubscribe
	m.idleTimer, m.beatTimer, m.unsubscribe = nil, nil, nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if idle != nil {
		idle.Stop()
	}
	if beat != nil {
		beat.Stop()
	}
	m.cancel()
	m.inflight.Wait()

	if wasStarted {
		ActiveSessions.Dec()
	}
	log.Debug().Str("session", m.sessionID).Msg("Liveness session stopped.")
}

// RecordSignal feeds an engaged signal directly, for hosts that do not use
// an ActivitySource.
func (m *Manager) RecordSignal(kind SignalKind) {
	m.onSignal(Signal{Kind: kind, Value: true})
}

func (m *Manager) onSignal(sig Signal) {
	if observer, ok := m.env.(signalObserver); ok {
		observer.Observe(sig)
	}
	if !sig.Engaged() || !m.agg.Record(sig.Kind) {
		return
	}

	m.mu.Lock()
	if !m.started || m.state == StateEnded || m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.resetIdleTimerLocked()
	if m.state == StateJoined || m.state == StateIdle {
		m.transitionLocked(StateActive)
	}
	m.mu.Unlock()

	m.notify()
}

func (m *Manager) resetIdleTimerLocked() {
	if m.idleTimer != nil {
		m.idleTimer.Stop()
	}
	m.idleGen++
	gen := m.idleGen
	m.idleTimer = m.sched.AfterFunc(m.cfg.MaxIdleTime, func() {
		m.onIdleTimeout(gen)
	})
}

func (m *Manager) onIdleTimeout(gen uint64) {
	m.mu.Lock()
	// A newer activity signal or a stop already superseded this timer.
	if gen != m.idleGen || !m.state.present() {
		m.mu.Unlock()
		return
	}
	m.transitionLocked(StateIdle)
	m.mu.Unlock()

	m.notify()
}

func (m *Manager) tick() {
	m.mu.Lock()
	if m.state == StateEnded {
		m.mu.Unlock()
		return
	}

	now := m.sched.Now()
	if now.Before(m.lastBeat) {
		now = m.lastBeat
	}
	m.lastBeat = now

	hb := Heartbeat{
		UserID:          m.userID,
		MeetingID:       m.meetingID,
		SessionID:       m.sessionID,
		Timestamp:       now,
		IsActive:        m.state.present(),
		IsVisible:       m.env.IsVisible(),
		IsFocused:       m.env.IsFocused(),
		LastInteraction: m.agg.LastActivity(),
		ActivitySignals: m.agg.Drain(),
	}
	ctx := m.ctx
	m.inflight.Go(func() {
		m.send(ctx, hb)
	})
	m.mu.Unlock()
}

func (m *Manager) send(ctx context.Context, hb Heartbeat) {
	hb.ConnectionQuality = m.prober.Probe(ctx)
	if ctx.Err() != nil {
		return
	}
	ConnectionQualityTotal.WithLabelValues(string(hb.ConnectionQuality)).Inc()

	err := m.submit(ctx, hb)

	m.mu.Lock()
	if m.state == StateEnded {
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.missed++
		m.failed++
		HeartbeatsTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).
			Str("session", m.sessionID).
			Int("missed", m.missed).
			Msg("An error occurred when delivering heartbeat...")

		if m.missed >= m.cfg.MaxMissedHeartbeats && m.state != StateDisconnected {
			if m.idleTimer != nil {
				m.idleTimer.Stop()
				m.idleTimer = nil
			}
			m.idleGen++
			m.transitionLocked(StateDisconnected)
		}
	} else {
		m.missed = 0
		m.sent++
		HeartbeatsTotal.WithLabelValues("delivered").Inc()
	}
	m.mu.Unlock()

	m.notify()
}

// submit runs the delivery with the configured timeout. A sink that
// overruns the timeout counts as a failure, but the call itself stays
// tracked so Stop still waits for it.
func (m *Manager) submit(ctx context.Context, hb Heartbeat) error {
	if m.deliver == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.DeliveryTimeout)
	defer cancel()

	done := make(chan error, 1)
	m.inflight.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: delivery panicked: %v", ErrTransport, r)
			}
		}()
		if err := ctx.Err(); err != nil {
			done <- err
			return
		}
		done <- m.deliver(ctx, hb)
	})

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
	}
}

// transitionLocked moves to the target state and queues the callback. Must
// be called with m.mu held.
func (m *Manager) transitionLocked(to State) {
	from := m.state
	if from == to {
		return
	}

	now := m.sched.Now()
	if from.inactive() && !m.idleSince.IsZero() {
		m.idleTotal += now.Sub(m.idleSince)
		m.idleSince = time.Time{}
	}
	if to.inactive() {
		m.idleSince = now
	}
	m.state = to
	TransitionsTotal.WithLabelValues(string(to)).Inc()

	log.Debug().
		Str("session", m.sessionID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("Liveness session changed state.")

	if to != StateEnded {
		m.pending = append(m.pending, StateChange{
			SessionID: m.sessionID,
			From:      from,
			To:        to,
			At:        now,
		})
	}
}

// notify drains queued transitions in order. Only one goroutine delivers at
// a time; a call made while a drain is running leaves its transitions to
// that drain.
func (m *Manager) notify() {
	m.mu.Lock()
	if m.notifying {
		m.mu.Unlock()
		return
	}
	m.notifying = true

	for {
		if len(m.pending) == 0 || m.state == StateEnded {
			m.pending = nil
			m.notifying = false
			m.mu.Unlock()
			return
		}
		change := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		if m.onState != nil {
			m.onState(change)
		}
		m.mu.Lock()
	}
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	idle := m.idleTotal
	ref := m.sched.Now()
	if m.state == StateEnded {
		ref = m.endedAt
	}
	if !m.idleSince.IsZero() {
		idle += ref.Sub(m.idleSince)
	}

	stats := Stats{
		SessionID:          m.sessionID,
		UserID:             m.userID,
		MeetingID:          m.meetingID,
		State:              m.state,
		JoinedAt:           m.joinedAt,
		IdleTime:           idle,
		HeartbeatsSent:     m.sent,
		HeartbeatsFailed:   m.failed,
		ConsecutiveMissed:  m.missed,
		Interactions:       m.agg.Interactions(),
		LastInteraction:    m.agg.LastActivity(),
		LastHeartbeatStamp: m.lastBeat,
	}
	if m.state == StateEnded {
		endedAt := m.endedAt
		stats.EndedAt = &endedAt
	}
	return stats
}
