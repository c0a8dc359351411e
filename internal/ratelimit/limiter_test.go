package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

func newTestLimiter(min, max time.Duration, r float64) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(min, max)
	l.now = clock.now
	l.sleep = clock.sleep
	l.rnd = func() float64 { return r }
	return l, clock
}

func TestWait_FirstCallDoesNotSleep(t *testing.T) {
	l, clock := newTestLimiter(3*time.Second, 5*time.Second, 0.5)

	assert.Zero(t, l.Wait())
	assert.Empty(t, clock.slept)
}

func TestWait_SecondCallHonoursMinimum(t *testing.T) {
	l, clock := newTestLimiter(3*time.Second, 5*time.Second, 0)

	l.Wait()
	first := clock.t
	clock.t = clock.t.Add(time.Second)

	slept := l.Wait()

	assert.Equal(t, 2*time.Second, slept)
	assert.GreaterOrEqual(t, clock.t.Sub(first), 3*time.Second)
}

func TestWait_RandomizedWithinBand(t *testing.T) {
	l, clock := newTestLimiter(3*time.Second, 5*time.Second, 0.5)

	l.Wait()
	first := clock.t
	l.Wait()

	assert.Equal(t, 4*time.Second, clock.t.Sub(first))
}

func TestWait_NoSleepWhenEnoughTimeElapsed(t *testing.T) {
	l, clock := newTestLimiter(3*time.Second, 5*time.Second, 1)

	l.Wait()
	clock.t = clock.t.Add(10 * time.Second)

	assert.Zero(t, l.Wait())
	assert.Empty(t, clock.slept)
}

func TestWait_ConsecutiveCallsNeverCloserThanMinimum(t *testing.T) {
	l, clock := newTestLimiter(2*time.Second, 4*time.Second, 0)

	var dispatches []time.Time
	for i := 0; i < 5; i++ {
		l.Wait()
		dispatches = append(dispatches, clock.t)
		clock.t = clock.t.Add(500 * time.Millisecond)
	}

	for i := 1; i < len(dispatches); i++ {
		assert.GreaterOrEqual(t, dispatches[i].Sub(dispatches[i-1]), 2*time.Second)
	}
}

func TestNew_NormalizesBand(t *testing.T) {
	l := New(5*time.Second, time.Second)
	min, max := l.Bounds()

	assert.Equal(t, 5*time.Second, min)
	assert.Equal(t, 5*time.Second, max)
}
