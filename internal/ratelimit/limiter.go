package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock is the time source used by the Limiter.
// SystemClock is used in production, ManualClock in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is a Clock backed by the time package.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep waits on a timer and returns ctx.Err() if the context ends first.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter enforces crawl politeness.
//
// Every outbound request is followed by a fixed delay (Pause). An optional
// global cap on requests per second is applied before each request
// (Acquire). The cap is shared by all workers using the same Limiter.
type Limiter struct {
	clock Clock
	delay time.Duration

	mu     sync.Mutex
	global *rate.Limiter

	pauses int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the clock. The default is SystemClock.
func WithClock(c Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithMaxRate caps the global request rate. Non-positive values disable the cap.
func WithMaxRate(requestsPerSecond float64) Option {
	return func(l *Limiter) {
		if requestsPerSecond > 0 {
			l.global = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

// New creates a Limiter with the given post-request delay.
func New(delay time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		clock: SystemClock{},
		delay: delay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Delay returns the post-request delay.
func (l *Limiter) Delay() time.Duration {
	return l.delay
}

// Acquire waits until the global rate cap allows another request.
// It returns immediately when no cap is configured.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.global == nil {
		return ctx.Err()
	}

	l.mu.Lock()
	now := l.clock.Now()
	r := l.global.ReserveN(now, 1)
	l.mu.Unlock()

	if !r.OK() {
		return ctx.Err()
	}
	if err := l.clock.Sleep(ctx, r.DelayFrom(now)); err != nil {
		r.CancelAt(l.clock.Now())
		return err
	}
	return nil
}

// Pause blocks for the politeness delay. Call it after every request,
// whether the request succeeded or not.
func (l *Limiter) Pause(ctx context.Context) error {
	l.mu.Lock()
	l.pauses++
	l.mu.Unlock()
	return l.clock.Sleep(ctx, l.delay)
}

// Pauses returns how many times Pause was called.
func (l *Limiter) Pauses() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pauses
}
