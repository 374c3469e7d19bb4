// Package scheduler provides the timer capability used by liveness sessions
// and meeting backends, so timing logic can run against a simulated clock.
package scheduler

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call stopped a pending
	// callback.
	Stop() bool
}

// Scheduler schedules one-shot and repeating callbacks.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

type clockScheduler struct {
	clock clock.Clock
}

// New returns a Scheduler driven by the given clock. A nil clock means the
// wall clock.
func New(c clock.Clock) Scheduler {
	if c == nil {
		c = clock.New()
	}
	return &clockScheduler{clock: c}
}

func (s *clockScheduler) Now() time.Time {
	return s.clock.Now()
}

func (s *clockScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return s.clock.AfterFunc(d, fn)
}

// Every runs fn on its own goroutine every d. Stopping the returned timer
// waits for the loop to exit, so fn must not stop its own timer.
func (s *clockScheduler) Every(d time.Duration, fn func()) Timer {
	r := &repeating{
		ticker: s.clock.Ticker(d),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go r.run(fn)
	return r
}

type repeating struct {
	ticker *clock.Ticker
	once   sync.Once
	stopCh chan struct{}
	doneCh chan struct{}
}

func (r *repeating) run(fn func()) {
	defer close(r.doneCh)
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.ticker.C:
			// A stop that raced with the tick wins.
			select {
			case <-r.stopCh:
				return
			default:
			}
			fn()
		}
	}
}

func (r *repeating) Stop() bool {
	stopped := false
	r.once.Do(func() {
		r.ticker.Stop()
		close(r.stopCh)
		stopped = true
	})
	<-r.doneCh
	return stopped
}
