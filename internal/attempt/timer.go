package attempt

import (
	"sync"
	"time"
)

// DeadlineTimer converts an absolute deadline into a 1 Hz countdown of whole
// seconds. Remaining time is always recomputed from the wall clock, never
// from an internal counter, so a suspended and resumed process lands on the
// correct value without drift. When the countdown reaches zero the expiry
// callback fires exactly once.
type DeadlineTimer struct {
	deadline time.Time
	interval time.Duration
	onTick   func(remaining int64)
	onExpire func()

	now        func() time.Time
	stopOnce   sync.Once
	expireOnce sync.Once
	stopCh     chan struct{}
}

// NewDeadlineTimer creates a timer. onTick receives the remaining whole
// seconds each interval; onExpire may be nil when auto-submit is disabled.
func NewDeadlineTimer(deadline time.Time, onTick func(int64), onExpire func()) *DeadlineTimer {
	return &DeadlineTimer{
		deadline: deadline,
		interval: time.Second,
		onTick:   onTick,
		onExpire: onExpire,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Remaining returns max(0, deadline - now) in whole seconds.
func (t *DeadlineTimer) Remaining() int64 {
	rem := t.deadline.Sub(t.now())
	if rem < 0 {
		return 0
	}
	return int64(rem / time.Second)
}

// Expired reports whether the deadline has passed.
func (t *DeadlineTimer) Expired() bool {
	return !t.now().Before(t.deadline)
}

// Start launches the countdown goroutine. Safe to call once.
func (t *DeadlineTimer) Start() {
	go t.run()
}

func (t *DeadlineTimer) run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			rem := t.Remaining()
			if t.onTick != nil {
				t.onTick(rem)
			}
			if rem == 0 {
				t.fireExpiry()
				return
			}
		}
	}
}

// fireExpiry consumes the one-shot expiry. Subsequent ticks or calls never
// re-fire it.
func (t *DeadlineTimer) fireExpiry() {
	t.expireOnce.Do(func() {
		if t.onExpire != nil {
			t.onExpire()
		}
	})
}

// Stop halts the countdown and releases the ticker. Idempotent; safe on
// every session exit path.
func (t *DeadlineTimer) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
}
