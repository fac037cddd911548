// Package ratelimit throttles repeated authentication attempts per key
// (the client IP) with a fixed-size window that resets lazily.
//
// A key starts Fresh (no entry). The first attempt creates an entry with
// count 1 and moves it to Tracking. Each later attempt within the window
// increments the count. Once count reaches the limit the key is Blocked and
// further attempts are rejected without changing the entry. The next
// attempt after more than one window has passed since the last counted
// attempt resets the entry and is counted as the first of a new window.
//
// Every attempt counts, whether or not it later succeeds.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Decision is the outcome of one attempt.
type Decision struct {
	// Allowed is false when the key is blocked.
	Allowed bool
	// Count is the number of attempts recorded in the current window.
	Count int
	// RetryAfter is how long a blocked client should wait. Zero when allowed.
	RetryAfter time.Duration
}

// Store applies one attempt atomically: the read, the reset check, the
// limit check and the write happen as one step for a given key.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (Decision, error)
}

// Limiter applies a Store with fixed limit and window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a limiter over store.
func New(cfg Config, store Store, opts ...Option) (*Limiter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("ratelimit: store is required")
	}
	l := &Limiter{
		store:  store,
		limit:  cfg.MaxAttempts,
		window: cfg.Window,
		prefix: cfg.KeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Check records an attempt for key and reports whether it may proceed.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	d, err := l.store.Hit(ctx, l.prefix+key, l.now(), l.limit, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}
	return d, nil
}

// Limit returns the maximum attempts per window.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the window length.
func (l *Limiter) Window() time.Duration { return l.window }

// decide is the transition shared by the stores. count and last describe
// the stored entry (count 0 means Fresh). It returns the decision and the
// entry to store; write is false when the entry must stay untouched.
func decide(count int, last, now time.Time, limit int, window time.Duration) (d Decision, newCount int, write bool) {
	if count > 0 && now.Sub(last) > window {
		count = 0
	}
	if count >= limit {
		retry := window - now.Sub(last)
		if retry <= 0 {
			retry = time.Second
		}
		return Decision{Allowed: false, Count: count, RetryAfter: retry}, count, false
	}
	count++
	return Decision{Allowed: true, Count: count}, count, true
}
