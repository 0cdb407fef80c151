package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming capacity if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the limiter to its initial state
	Reset()
}

// TokenBucket refills continuously at capacity tokens per period
type TokenBucket struct {
	capacity float64
	tokens   float64
	rate     float64 // tokens per second
	last     time.Time
	now      func() time.Time
	mu       sync.Mutex
}

// NewTokenBucket creates a bucket holding capacity tokens that fully refills over period
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	tb := &TokenBucket{
		capacity: float64(capacity),
		tokens:   float64(capacity),
		rate:     float64(capacity) / period.Seconds(),
		now:      time.Now,
	}
	tb.last = tb.now()
	return tb
}

// PerMinute creates a bucket allowing n requests per minute
func PerMinute(n int) *TokenBucket {
	return NewTokenBucket(n, time.Minute)
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}
		if err := sleep(ctx, tb.untilNext()); err != nil {
			return err
		}
	}
}

// Reset refills the bucket to capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.last = tb.now()
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.last).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens = math.Min(tb.capacity, tb.tokens+elapsed*tb.rate)
	tb.last = now
}

func (tb *TokenBucket) untilNext() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	missing := 1 - tb.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / tb.rate * float64(time.Second))
}

// HeaderLimiter follows Reddit's X-Ratelimit-* response headers. Once the
// server reports no remaining requests, Wait blocks until the reset window.
type HeaderLimiter struct {
	remaining float64
	known     bool
	resetAt   time.Time
	now       func() time.Time
	mu        sync.Mutex
}

// NewHeaderLimiter creates a limiter that allows everything until Update is called
func NewHeaderLimiter() *HeaderLimiter {
	return &HeaderLimiter{now: time.Now}
}

// Update records the quota reported by a response
func (hl *HeaderLimiter) Update(h http.Header) {
	remaining, errRemaining := strconv.ParseFloat(h.Get("X-Ratelimit-Remaining"), 64)
	reset, errReset := strconv.ParseFloat(h.Get("X-Ratelimit-Reset"), 64)
	if errRemaining != nil || errReset != nil {
		return
	}

	hl.mu.Lock()
	defer hl.mu.Unlock()

	hl.remaining = remaining
	hl.known = true
	hl.resetAt = hl.now().Add(time.Duration(reset * float64(time.Second)))
}

// Delay returns how long a request has to wait before it may be sent
func (hl *HeaderLimiter) Delay() time.Duration {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if !hl.known || hl.remaining >= 1 {
		return 0
	}
	d := hl.resetAt.Sub(hl.now())
	if d < 0 {
		return 0
	}
	return d
}

// Allow checks if a request can proceed
func (hl *HeaderLimiter) Allow() bool {
	if hl.Delay() > 0 {
		return false
	}

	hl.mu.Lock()
	defer hl.mu.Unlock()
	if hl.known && hl.remaining >= 1 {
		hl.remaining--
	}
	return true
}

// Wait blocks until the reset window has passed
func (hl *HeaderLimiter) Wait(ctx context.Context) error {
	for !hl.Allow() {
		if err := sleep(ctx, hl.Delay()); err != nil {
			return err
		}
	}
	return nil
}

// Reset forgets the last reported quota
func (hl *HeaderLimiter) Reset() {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	hl.known = false
	hl.remaining = 0
	hl.resetAt = time.Time{}
}

// Chain applies several limiters in order
type Chain []Limiter

func (c Chain) Allow() bool {
	for _, l := range c {
		if !l.Allow() {
			return false
		}
	}
	return true
}

func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) Reset() {
	for _, l := range c {
		l.Reset()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = 10 * time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
