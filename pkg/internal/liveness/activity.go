package liveness

import (
	"sync"
	"time"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/scheduler"
)

type SignalKind string

const (
	SignalPointer    SignalKind = "pointer"
	SignalKeyboard   SignalKind = "keyboard"
	SignalScroll     SignalKind = "scroll"
	SignalVisibility SignalKind = "visibility"
	SignalFocus      SignalKind = "focus"
)

// ThrottleWindow is the minimum spacing between two accepted high-frequency
// signals of the same kind.
const ThrottleWindow = time.Second

func (k SignalKind) IsValid() bool {
	switch k {
	case SignalPointer, SignalKeyboard, SignalScroll, SignalVisibility, SignalFocus:
		return true
	}
	return false
}

func (k SignalKind) throttled() bool {
	return k == SignalPointer || k == SignalScroll
}

// Signal is a single raw engagement event from the hosting environment.
// Value carries the new visibility or focus for those kinds and is ignored
// for the others.
type Signal struct {
	Kind  SignalKind `json:"kind"`
	Value bool       `json:"value"`
}

// Engaged reports whether the signal shows the participant paying
// attention. Losing visibility or focus does not.
func (s Signal) Engaged() bool {
	switch s.Kind {
	case SignalVisibility, SignalFocus:
		return s.Value
	}
	return true
}

// ActivitySource delivers raw engagement signals. Subscribe returns a cancel
// function that detaches the handler.
type ActivitySource interface {
	Subscribe(handler func(Signal)) (cancel func())
}

// ActivitySignals tells which kinds of interaction happened since the
// previous heartbeat.
type ActivitySignals struct {
	MouseMovement    bool `json:"mouse_movement"`
	KeyboardActivity bool `json:"keyboard_activity"`
	ScrollActivity   bool `json:"scroll_activity"`
}

func (s ActivitySignals) Any() bool {
	return s.MouseMovement || s.KeyboardActivity || s.ScrollActivity
}

// Aggregator collapses raw signals into a debounced "recently active" view.
// It only tracks timestamps; deciding idle or active is up to the Manager.
type Aggregator struct {
	mu    sync.Mutex
	sched scheduler.Scheduler

	last         time.Time
	lastAccepted map[SignalKind]time.Time
	pending      ActivitySignals
	interactions int
}

func NewAggregator(sched scheduler.Scheduler) *Aggregator {
	if sched == nil {
		sched = scheduler.New(nil)
	}
	return &Aggregator{
		sched:        sched,
		lastAccepted: make(map[SignalKind]time.Time),
	}
}

// Record registers a signal and reports whether it was accepted. Pointer and
// scroll signals inside ThrottleWindow of the previous accepted one of the
// same kind are dropped.
func (a *Aggregator) Record(kind SignalKind) bool {
	now := a.sched.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	if kind.throttled() {
		if prev, ok := a.lastAccepted[kind]; ok && now.Sub(prev) < ThrottleWindow {
			return false
		}
	}
	a.lastAccepted[kind] = now
	if now.After(a.last) {
		a.last = now
	}
	a.interactions++

	switch kind {
	case SignalPointer:
		a.pending.MouseMovement = true
	case SignalKeyboard:
		a.pending.KeyboardActivity = true
	case SignalScroll:
		a.pending.ScrollActivity = true
	}
	return true
}

// HasRecentActivity reports whether the latest accepted signal happened
// within the given window.
func (a *Aggregator) HasRecentActivity(within time.Duration) bool {
	now := a.sched.Now()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last.IsZero() {
		return false
	}
	return now.Sub(a.last) <= within
}

func (a *Aggregator) LastActivity() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Interactions returns the number of accepted signals so far.
func (a *Aggregator) Interactions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interactions
}

// Drain returns the interaction flags collected since the previous call and
// clears them.
func (a *Aggregator) Drain() ActivitySignals {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.pending
	a.pending = ActivitySignals{}
	return out
}

// Feed is an in-process ActivitySource. Hosts without native input events
// (HTTP handlers, tests) push signals into it with Emit.
type Feed struct {
	mu       sync.RWMutex
	seq      int
	handlers map[int]func(Signal)
}

func NewFeed() *Feed {
	return &Feed{handlers: make(map[int]func(Signal))}
}

func (f *Feed) Subscribe(handler func(Signal)) func() {
	f.mu.Lock()
	f.seq++
	id := f.seq
	f.handlers[id] = handler
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

// Emit dispatches an engaged signal of the given kind.
func (f *Feed) Emit(kind SignalKind) {
	f.Send(Signal{Kind: kind, Value: true})
}

// Send dispatches a signal to every subscriber synchronously.
func (f *Feed) Send(sig Signal) {
	f.mu.RLock()
	handlers := make([]func(Signal), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(sig)
	}
}

// Subscribers returns how many handlers are attached.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}
