package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff configures Retry.
type Backoff struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int
	// Initial is the delay after the first failure.
	Initial time.Duration
	// Max caps the delay between attempts.
	Max time.Duration
	// Factor multiplies the delay after each failure.
	Factor float64
	// Jitter randomizes each delay by up to this fraction (0 to 1).
	Jitter float64
	// RetryIf reports whether err is worth another attempt. Context
	// errors are never retried.
	RetryIf func(err error) bool
	// OnRetry is called before sleeping.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (b *Backoff) applyDefaults() {
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 3
	}
	if b.Initial <= 0 {
		b.Initial = time.Second
	}
	if b.Max <= 0 {
		b.Max = 30 * time.Second
	}
	if b.Factor < 1 {
		b.Factor = 2
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	b.applyDefaults()
	d := float64(b.Initial) * math.Pow(b.Factor, float64(attempt-1))
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	if d < 0 {
		d = float64(b.Initial)
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds, the attempts run out, RetryIf rejects
// the error, or ctx ends. fn receives the 1-based attempt number. The last
// error from fn is returned.
func Retry[T any](ctx context.Context, b Backoff, fn func(attempt int) (T, error)) (T, error) {
	b.applyDefaults()
	var zero T
	var err error

	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		var result T
		result, err = fn(attempt)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if b.RetryIf != nil && !b.RetryIf(err) {
			return zero, err
		}
		if attempt == b.MaxAttempts {
			break
		}

		delay := b.Delay(attempt)
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, delay)
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
	return zero, err
}
