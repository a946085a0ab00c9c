package pnet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSchedulerFairness(t *testing.T) {
	// S3: three one-shots at (10ms, 5ms, 20ms), ticked at t=1,6,11,21ms.
	// Expect fire order 5, 10, 20; free list restored afterwards.
	var s = NewScheduler(time.Millisecond, false)
	var base = time.Unix(0, 0)

	var order []string

	var _, err1 = s.Add(base, 10*time.Millisecond, "ten", func(time.Time, any) { order = append(order, "10") }, nil)
	require.NoError(t, err1)
	var _, err2 = s.Add(base, 5*time.Millisecond, "five", func(time.Time, any) { order = append(order, "5") }, nil)
	require.NoError(t, err2)
	var _, err3 = s.Add(base, 20*time.Millisecond, "twenty", func(time.Time, any) { order = append(order, "20") }, nil)
	require.NoError(t, err3)

	s.Tick(base.Add(1 * time.Millisecond))
	s.Tick(base.Add(6 * time.Millisecond))
	s.Tick(base.Add(11 * time.Millisecond))
	s.Tick(base.Add(21 * time.Millisecond))

	assert.Equal(t, []string{"5", "10", "20"}, order)
	assert.Equal(t, SchedulerCapacity, s.FreeCount())
	assert.Equal(t, 0, s.BusyCount())
}

func TestSchedulerResourceExhaustion(t *testing.T) {
	var s = NewScheduler(time.Millisecond, false)
	var base = time.Unix(0, 0)

	for i := 0; i < SchedulerCapacity; i++ {
		var _, err = s.Add(base, time.Duration(i)*time.Millisecond, "x", func(time.Time, any) {}, nil)
		require.NoError(t, err)
	}

	var _, err = s.Add(base, time.Millisecond, "overflow", func(time.Time, any) {}, nil)
	require.Error(t, err)
	assert.IsType(t, &ErrResourceExhausted{}, err)
}

func TestSchedulerRemoveAfterRecycleIsNoop(t *testing.T) {
	// Use-after-remove / double-remove must be detected via the generation
	// counter rather than corrupting an unrelated timer.
	var s = NewScheduler(time.Millisecond, false)
	var base = time.Unix(0, 0)

	var h, err = s.Add(base, time.Millisecond, "a", func(time.Time, any) {}, nil)
	require.NoError(t, err)

	s.Remove(h)
	assert.False(t, s.IsRunning(h))

	// Recycle the slot with a new timer and make sure removing the stale
	// handle does not touch it.
	var fired = false
	var h2, err2 = s.Add(base, time.Millisecond, "b", func(time.Time, any) { fired = true }, nil)
	require.NoError(t, err2)

	s.Remove(h) // stale handle, must be a no-op
	assert.True(t, s.IsRunning(h2))

	s.Tick(base.Add(time.Millisecond))
	assert.True(t, fired)
}

func TestSchedulerCallbackCanRestartItself(t *testing.T) {
	var s = NewScheduler(time.Millisecond, false)
	var base = time.Unix(0, 0)

	var fireCount int
	var h Handle
	var cb SchedulerCallback
	cb = func(now time.Time, arg any) {
		fireCount++
		if fireCount < 3 {
			var newH, err = s.Restart(now, time.Millisecond, "cyclic", cb, nil, h)
			require.NoError(t, err)
			h = newH
		}
	}

	var firstH, err = s.Add(base, time.Millisecond, "cyclic", cb, nil)
	require.NoError(t, err)
	h = firstH

	s.Tick(base.Add(1 * time.Millisecond))
	s.Tick(base.Add(2 * time.Millisecond))
	s.Tick(base.Add(3 * time.Millisecond))

	assert.Equal(t, 3, fireCount)
}

// TestSchedulerInvariantCapacity is  quantified invariant 1: for
// all reachable states, |free| + |busy| == capacity.
func TestSchedulerInvariantCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var s = NewScheduler(time.Millisecond, false)
		var base = time.Unix(0, 0)
		var handles []Handle

		var n = rapid.IntRange(0, 40).Draw(t, "ops")
		for i := 0; i < n; i++ {
			var op = rapid.IntRange(0, 2).Draw(t, "op")
			switch op {
			case 0:
				var delay = time.Duration(rapid.IntRange(0, 1000).Draw(t, "delay")) * time.Millisecond
				var h, err = s.Add(base, delay, "r", func(time.Time, any) {}, nil)
				if err == nil {
					handles = append(handles, h)
				}
			case 1:
				if len(handles) > 0 {
					var idx = rapid.IntRange(0, len(handles)-1).Draw(t, "idx")
					s.Remove(handles[idx])
					handles = append(handles[:idx], handles[idx+1:]...)
				}
			case 2:
				var advance = time.Duration(rapid.IntRange(0, 2000).Draw(t, "advance")) * time.Millisecond
				s.Tick(base.Add(advance))
			}

			assert.Equal(t, SchedulerCapacity, s.FreeCount()+s.BusyCount())
		}
	})
}
