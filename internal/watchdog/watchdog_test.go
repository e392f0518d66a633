package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestWatchdog(timeout time.Duration) (*Watchdog, *fakeClock, *int) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	fired := 0
	w := New(timeout, func(time.Duration) { fired++ })
	w.now = clock.Now
	w.ResetTimeout()
	return w, clock, &fired
}

func TestCheck_FiresOncePerEpisode(t *testing.T) {
	w, clock, fired := newTestWatchdog(time.Second)

	clock.Advance(500 * time.Millisecond)
	assert.False(t, w.Check())
	assert.Equal(t, 0, *fired)

	clock.Advance(600 * time.Millisecond)
	assert.True(t, w.Check())
	assert.True(t, w.expired.Load())

	clock.Advance(5 * time.Second)
	assert.False(t, w.Check(), "already expired, must not fire again")
	assert.Equal(t, 1, *fired)
}

func TestResetTimeout_Rearms(t *testing.T) {
	w, clock, fired := newTestWatchdog(time.Second)

	clock.Advance(2 * time.Second)
	require.True(t, w.Check())

	w.ResetTimeout()
	assert.False(t, w.expired.Load())
	assert.Equal(t, time.Duration(0), w.Since())

	clock.Advance(2 * time.Second)
	assert.True(t, w.Check())
	assert.Equal(t, 2, *fired)
}

func TestStartStop(t *testing.T) {
	expired := make(chan struct{}, 1)
	w := New(20*time.Millisecond, func(time.Duration) {
		select {
		case expired <- struct{}{}:
		default:
		}
	})

	w.Start(context.Background())
	w.Start(context.Background()) // second start ignored

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog never expired without resets")
	}

	w.Stop()
	w.Stop() // second stop is a no-op
}
