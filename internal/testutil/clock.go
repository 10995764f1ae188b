package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/hivemesh/hivemesh/core"
)

// ManualScheduler is a deterministic core.Scheduler for tests. Time only
// moves when Advance is called; due callbacks fire synchronously on the
// calling goroutine in expiry order, so tests never sleep.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	seq       int
	when      time.Time
	interval  time.Duration // 0 for one-shot
	fn        func()
	cancelled bool
}

// NewManualScheduler creates a scheduler starting at the given instant.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the current virtual time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// After schedules fn once after d of virtual time.
func (s *ManualScheduler) After(d time.Duration, fn func()) core.CancelFunc {
	return s.add(d, 0, fn)
}

// Every schedules fn with virtual period d until cancelled.
func (s *ManualScheduler) Every(d time.Duration, fn func()) core.CancelFunc {
	return s.add(d, d, fn)
}

func (s *ManualScheduler) add(d, interval time.Duration, fn func()) core.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{seq: s.seq, when: s.now.Add(d), interval: interval, fn: fn}
	s.seq++
	s.timers = append(s.timers, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.cancelled = true
	}
}

// Advance moves virtual time forward by d, firing every due callback in
// expiry order (scheduling order breaks ties). Callbacks may schedule
// further timers; those also fire if they fall within the advanced window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	deadline := s.now.Add(d)
	for {
		t := s.nextDueLocked(deadline)
		if t == nil {
			break
		}
		s.now = t.when
		if t.interval > 0 {
			t.when = t.when.Add(t.interval)
		} else {
			t.cancelled = true
		}
		fn := t.fn
		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}
	s.now = deadline
	s.compactLocked()
	s.mu.Unlock()
}

// nextDueLocked returns the earliest non-cancelled timer due at or before
// deadline, or nil.
func (s *ManualScheduler) nextDueLocked(deadline time.Time) *manualTimer {
	var due *manualTimer
	for _, t := range s.timers {
		if t.cancelled || t.when.After(deadline) {
			continue
		}
		if due == nil || t.when.Before(due.when) || (t.when.Equal(due.when) && t.seq < due.seq) {
			due = t
		}
	}
	return due
}

func (s *ManualScheduler) compactLocked() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool { return s.timers[i].when.Before(s.timers[j].when) })
}

// PendingTimers reports the number of live (not cancelled) timers.
func (s *ManualScheduler) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}
