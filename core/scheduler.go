package core

import (
	"sync"
	"time"
)

// CancelFunc stops a pending or recurring scheduled callback. Calling it
// more than once is safe. It does not interrupt a callback already running.
type CancelFunc func()

// Clock supplies the current time. Abstracted so tests can substitute a
// manual clock and advance virtual time deterministically.
type Clock interface {
	Now() time.Time
}

// Scheduler schedules delayed and recurring callbacks. The coordination core
// performs all "asynchronous" work (task completion, message delivery,
// liveness checks, session sweeps) through this interface; callbacks run on
// their own goroutine and must re-acquire whatever serialization guards the
// state they mutate.
type Scheduler interface {
	Clock

	// After runs fn once after d has elapsed.
	After(d time.Duration, fn func()) CancelFunc

	// Every runs fn repeatedly with period d until cancelled.
	Every(d time.Duration, fn func()) CancelFunc
}

// realScheduler is the wall-clock Scheduler used outside of tests.
type realScheduler struct{}

// NewScheduler returns a Scheduler backed by the runtime timers.
func NewScheduler() Scheduler { return realScheduler{} }

func (realScheduler) Now() time.Time { return time.Now() }

func (realScheduler) After(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func (realScheduler) Every(d time.Duration, fn func()) CancelFunc {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
