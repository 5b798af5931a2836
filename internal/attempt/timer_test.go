package attempt

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemainingDerivedFromWallClock(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tm := NewDeadlineTimer(base.Add(5*time.Second), nil, nil)
	tm.now = func() time.Time { return base }

	assert.Equal(t, int64(5), tm.Remaining())

	// Simulate a suspended session resuming 3s later: recomputation from the
	// absolute deadline lands on the right value without drift.
	tm.now = func() time.Time { return base.Add(3 * time.Second) }
	assert.Equal(t, int64(2), tm.Remaining())

	tm.now = func() time.Time { return base.Add(10 * time.Second) }
	assert.Equal(t, int64(0), tm.Remaining())
	assert.True(t, tm.Expired())
}

func TestTicksThenExpiresExactlyOnce(t *testing.T) {
	var ticks atomic.Int64
	var expiries atomic.Int64

	tm := NewDeadlineTimer(time.Now().Add(90*time.Millisecond), func(int64) {
		ticks.Add(1)
	}, func() {
		expiries.Add(1)
	})
	tm.interval = 25 * time.Millisecond
	defer tm.Stop()

	tm.Start()
	time.Sleep(300 * time.Millisecond)

	require.Equal(t, int64(1), expiries.Load(), "expiry must fire exactly once")
	assert.GreaterOrEqual(t, ticks.Load(), int64(3))
}

func TestExpiryNeverRefires(t *testing.T) {
	var expiries atomic.Int64
	tm := NewDeadlineTimer(time.Now().Add(-time.Second), nil, func() {
		expiries.Add(1)
	})

	tm.fireExpiry()
	tm.fireExpiry()
	tm.fireExpiry()

	assert.Equal(t, int64(1), expiries.Load())
}

func TestNilExpiryCallbackIsNotAnError(t *testing.T) {
	// Auto-submit disabled: the countdown simply stops producing triggers.
	tm := NewDeadlineTimer(time.Now().Add(30*time.Millisecond), nil, nil)
	tm.interval = 10 * time.Millisecond
	tm.Start()
	time.Sleep(100 * time.Millisecond)
	tm.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	tm := NewDeadlineTimer(time.Now().Add(time.Hour), nil, nil)
	tm.Start()
	tm.Stop()
	tm.Stop()
}
