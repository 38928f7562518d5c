package viewport

import (
	"sync"
	"time"
)

// DefaultInterval coalesces scroll bursts to one recompute per 100ms.
const DefaultInterval = 100 * time.Millisecond

// Throttle runs fn at most once per interval on the trailing edge. A trigger
// schedules a run after the interval; triggers arriving before it fires are
// dropped, so fn must read the latest state itself.
type Throttle struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func NewThrottle(interval time.Duration, fn func()) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttle{interval: interval, fn: fn}
}

// Trigger requests a run. It never blocks on fn.
func (t *Throttle) Trigger() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.interval, t.fire)
}

func (t *Throttle) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()
	t.fn()
}

// Stop cancels a pending run and ignores later triggers.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
