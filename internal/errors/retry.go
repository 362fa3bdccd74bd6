package errors

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Backoff describes exponentially growing waits between attempts.
type Backoff struct {
	// Retries is how many times to try again after the first failure.
	Retries int
	// Initial is the wait before the first retry.
	Initial time.Duration
	// Max caps any single wait.
	Max time.Duration
	// Factor multiplies the wait after each retry.
	Factor float64
	// Jitter scales each wait by a random factor in [0.5, 1).
	Jitter bool
}

// EngineBackoff is used while waiting for a search engine to come back:
// 1s, 2s, 4s, then give up.
func EngineBackoff() Backoff {
	return Backoff{
		Retries: 3,
		Initial: time.Second,
		Max:     16 * time.Second,
		Factor:  2,
	}
}

// Delay returns the wait before retry n (0-based), without jitter.
func (b Backoff) Delay(n int) time.Duration {
	d := b.Initial
	for i := 0; i < n; i++ {
		d = time.Duration(float64(d) * b.Factor)
		if d >= b.Max {
			return b.Max
		}
	}
	return d
}

func (b Backoff) wait(n int) time.Duration {
	d := b.Delay(n)
	if b.Jitter {
		d = time.Duration(float64(d) * (0.5 + rand.Float64()*0.5))
	}
	return d
}

// Retry calls fn until it succeeds, fails with an error that is not
// Retryable, or runs out of retries. Non-retryable errors are returned
// unchanged; exhausting retries wraps the last error.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	var err error
	for n := 0; ; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if n >= b.Retries {
			return fmt.Errorf("failed after %d retries: %w", b.Retries, err)
		}

		timer := time.NewTimer(b.wait(n))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
