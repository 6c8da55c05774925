package reveal

import (
	"sync"
	"time"
)

// Clock creates the timers the sequencer waits on.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

// Timer is a single-shot timer that can be torn down early.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock uses the runtime's timers.
type RealClock struct{}

func (RealClock) NewTimer(d time.Duration) Timer {
	return realTimer{time.NewTimer(d)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// VirtualClock fires every timer immediately and advances its own notion of
// now by the timer's duration. Every wait is recorded.
type VirtualClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

// NewVirtualClock returns a clock starting at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (v *VirtualClock) NewTimer(d time.Duration) Timer {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.now = v.now.Add(d)
	v.waits = append(v.waits, d)

	ch := make(chan time.Time, 1)
	ch <- v.now
	return firedTimer{ch}
}

// Now returns the virtual time.
func (v *VirtualClock) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Waits returns a copy of every duration waited on so far.
func (v *VirtualClock) Waits() []time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]time.Duration(nil), v.waits...)
}

type firedTimer struct{ ch chan time.Time }

func (f firedTimer) C() <-chan time.Time { return f.ch }
func (f firedTimer) Stop() bool          { return false }
