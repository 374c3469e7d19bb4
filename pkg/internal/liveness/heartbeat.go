package liveness

import (
	"sync/atomic"
	"time"
)

type State string

const (
	StateJoined       State = "joined"
	StateActive       State = "active"
	StateIdle         State = "idle"
	StateDisconnected State = "disconnected"
	StateEnded        State = "ended"
)

// present reports whether heartbeats sent in this state count as active.
func (s State) present() bool {
	return s == StateJoined || s == StateActive
}

// inactive reports whether time spent in this state counts as idle time.
func (s State) inactive() bool {
	return s == StateIdle || s == StateDisconnected
}

// Heartbeat is an immutable point-in-time liveness report of one session.
type Heartbeat struct {
	UserID            string    `json:"user_id"`
	MeetingID         string    `json:"meeting_id"`
	SessionID         string    `json:"session_id"`
	Timestamp         time.Time `json:"timestamp"`
	IsActive          bool      `json:"is_active"`
	IsVisible         bool      `json:"is_visible"`
	IsFocused         bool      `json:"is_focused"`
	ConnectionQuality Quality   `json:"connection_quality"`
	LastInteraction   time.Time `json:"last_interaction"`

	ActivitySignals
}

// StateChange describes one transition of a session.
type StateChange struct {
	SessionID string    `json:"session_id"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	At        time.Time `json:"at"`
}

// Environment reports what the hosting client knows about its window.
type Environment interface {
	IsVisible() bool
	IsFocused() bool
}

// Foreground is an Environment that is always visible and focused, the
// right default for service-side sessions without a window.
type Foreground struct{}

func (Foreground) IsVisible() bool { return true }
func (Foreground) IsFocused() bool { return true }

// signalObserver is an Environment that follows the signals of its session.
type signalObserver interface {
	Observe(sig Signal)
}

// Window is an Environment driven by visibility and focus signals reported
// by the client. It starts visible and focused.
type Window struct {
	hidden  atomic.Bool
	blurred atomic.Bool
}

func NewWindow() *Window {
	return &Window{}
}

// Observe applies a visibility or focus signal. Other kinds are ignored.
func (w *Window) Observe(sig Signal) {
	switch sig.Kind {
	case SignalVisibility:
		w.hidden.Store(!sig.Value)
	case SignalFocus:
		w.blurred.Store(!sig.Value)
	}
}

func (w *Window) IsVisible() bool { return !w.hidden.Load() }
func (w *Window) IsFocused() bool { return !w.blurred.Load() }
