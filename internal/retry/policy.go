// Package retry runs an operation repeatedly with a growing delay between attempts.
package retry

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Backoff computes the base wait before the retry that follows attempt (zero based).
type Backoff func(base time.Duration, attempt int) time.Duration

// Constant waits the same amount after every attempt.
func Constant(base time.Duration, _ int) time.Duration {
	return base
}

// Linear waits base, 2*base, 3*base, ...
func Linear(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt+1)
}

// Exponential waits base, 2*base, 4*base, ...
func Exponential(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<uint(attempt))
}

// ParseBackoff resolves a backoff function by name.
func ParseBackoff(name string) (Backoff, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "constant", "fixed":
		return Constant, nil
	case "linear":
		return Linear, nil
	case "", "exponential", "exp":
		return Exponential, nil
	default:
		return nil, fmt.Errorf("unknown backoff %q", name)
	}
}

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     Backoff
	JitterMin   time.Duration
	JitterMax   time.Duration

	// OnRetry is called before sleeping between attempts.
	OnRetry func(attempt int, err error, wait time.Duration)

	sleep func(time.Duration)
	rnd   func() float64
}

// WithClock returns a copy of the policy using the given sleep and random source.
func (p Policy) WithClock(sleep func(time.Duration), rnd func() float64) Policy {
	p.sleep = sleep
	p.rnd = rnd
	return p
}

// Delay returns the wait that follows a failed attempt (zero based).
func (p Policy) Delay(attempt int) time.Duration {
	backoff := p.Backoff
	if backoff == nil {
		backoff = Exponential
	}
	wait := backoff(p.BaseDelay, attempt)

	if p.JitterMax > p.JitterMin {
		rnd := p.rnd
		if rnd == nil {
			rnd = rand.Float64
		}
		wait += p.JitterMin + time.Duration(rnd()*float64(p.JitterMax-p.JitterMin))
	} else if p.JitterMin > 0 {
		wait += p.JitterMin
	}
	return wait
}

// Do runs fn until it succeeds or the attempt budget is spent. The error of the
// last attempt is returned unchanged.
func (p Policy) Do(fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		sleep(wait)
	}
	return err
}
