package core

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerAfterFires(t *testing.T) {
	sched := NewScheduler()
	done := make(chan struct{})

	sched.After(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled callback never fired")
	}
}

func TestSchedulerAfterCancel(t *testing.T) {
	sched := NewScheduler()
	var fired atomic.Bool

	cancel := sched.After(50*time.Millisecond, func() { fired.Store(true) })
	cancel()

	time.Sleep(120 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestSchedulerEveryRepeatsUntilCancelled(t *testing.T) {
	sched := NewScheduler()
	var count atomic.Int32

	cancel := sched.Every(5*time.Millisecond, func() { count.Add(1) })

	assert.Eventually(t, func() bool { return count.Load() >= 3 }, 2*time.Second, time.Millisecond)

	cancel()
	cancel() // idempotent
	settled := count.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, count.Load(), settled+1)
}
