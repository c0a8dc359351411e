// Package ratelimit spaces out requests issued by a single source adapter.
package ratelimit

import (
	"math/rand"
	"time"
)

// Limiter enforces a randomized minimum interval between consecutive requests.
// It is not safe for concurrent use; each adapter owns its own Limiter.
type Limiter struct {
	min  time.Duration
	max  time.Duration
	last time.Time

	now   func() time.Time
	sleep func(time.Duration)
	rnd   func() float64
}

// New creates a limiter whose interval is drawn from [min, max] on every call.
// A max smaller than min is treated as min.
func New(min, max time.Duration) *Limiter {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &Limiter{
		min:   min,
		max:   max,
		now:   time.Now,
		sleep: time.Sleep,
		rnd:   rand.Float64,
	}
}

// Wait blocks until the drawn interval has passed since the previous dispatch,
// then records the current time as the new dispatch time.
func (l *Limiter) Wait() time.Duration {
	var slept time.Duration
	if !l.last.IsZero() {
		target := l.interval()
		if elapsed := l.now().Sub(l.last); elapsed < target {
			slept = target - elapsed
			l.sleep(slept)
		}
	}
	l.last = l.now()
	return slept
}

// Bounds returns the configured interval band.
func (l *Limiter) Bounds() (time.Duration, time.Duration) {
	return l.min, l.max
}

func (l *Limiter) interval() time.Duration {
	if l.max == l.min {
		return l.min
	}
	return l.min + time.Duration(l.rnd()*float64(l.max-l.min))
}
