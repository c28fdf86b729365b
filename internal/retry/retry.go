package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Policy describes how one class of failure is retried.
type Policy struct {
	// MaxAttempts counts the first call; values <= 1 disable retries.
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps every computed delay when positive.
	MaxDelay time.Duration
	// Linear grows the delay by BaseDelay per attempt instead of doubling it.
	Linear bool
	// Jitter adds up to Jitter*delay of random extra wait.
	Jitter float64
}

// Delay returns the wait before the attempt following attempt (1-based).
func (p Policy) Delay(attempt int, rng *rand.Rand) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}
	var delay time.Duration
	if p.Linear {
		delay = p.BaseDelay * time.Duration(attempt)
	} else {
		// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
		delay = p.BaseDelay
		for i := 1; i < attempt; i++ {
			if p.MaxDelay > 0 && delay > p.MaxDelay/2 {
				delay = p.MaxDelay
				break
			}
			delay *= 2
		}
	}
	if p.Jitter > 0 && rng != nil {
		delay += time.Duration(rng.Float64() * p.Jitter * float64(delay))
	}
	return p.cap(delay)
}

func (p Policy) cap(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Classifier selects the policy for err. Returning false stops retrying.
type Classifier func(err error) (Policy, bool)

// Only retries errors matched by match with a single policy.
func Only(policy Policy, match func(error) bool) Classifier {
	return func(err error) (Policy, bool) {
		if match(err) {
			return policy, true
		}
		return Policy{}, false
	}
}

// Hinted is implemented by errors that carry a server-provided wait, such as a
// Retry-After header.
type Hinted interface {
	RetryAfter() time.Duration
}

// ExhaustedError reports that the policy for the final error ran out of attempts.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Observer is notified before each retry sleep.
type Observer func(attempt int, delay time.Duration, err error)

// Retrier runs operations under a classifier.
type Retrier struct {
	Classify Classifier
	Sleeper  Sleeper
	Rand     *rand.Rand
	OnRetry  Observer
}

// Do calls fn until it succeeds, the classifier declines the error, or the
// matching policy is exhausted. Attempts are counted across error classes; each
// class stops once the running count reaches its own MaxAttempts.
func (r Retrier) Do(ctx context.Context, fn func(context.Context) error) error {
	if ctx == nil {
		return errors.New("retry: nil context")
	}
	sleeper := r.Sleeper
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return err
			}
		}
		if r.Classify == nil {
			return err
		}
		policy, ok := r.Classify(err)
		if !ok {
			return err
		}
		if attempt >= policy.MaxAttempts {
			if attempt == 1 {
				return err
			}
			return &ExhaustedError{Attempts: attempt, Err: err}
		}
		delay := policy.Delay(attempt, r.Rand)
		var hinted Hinted
		if errors.As(err, &hinted) && hinted.RetryAfter() > 0 {
			delay = policy.cap(hinted.RetryAfter())
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt, delay, err)
		}
		if err := sleeper.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Do is a convenience wrapper for a Retrier without jitter or observer.
func Do(ctx context.Context, sleeper Sleeper, classify Classifier, fn func(context.Context) error) error {
	return Retrier{Classify: classify, Sleeper: sleeper}.Do(ctx, fn)
}
