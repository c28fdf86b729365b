package retry

import (
	"context"
	"sync"
	"time"
)

// Sleeper waits for a duration unless the context ends first.
type Sleeper interface {
	Sleep(ctx context.Context, delay time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, delay time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, delay time.Duration) error {
	return f(ctx, delay)
}

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

// Sleep blocks for delay or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recorder is a Sleeper that records requested delays and returns immediately.
type Recorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records delay.
func (r *Recorder) Sleep(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.delays = append(r.delays, delay)
	r.mu.Unlock()
	return nil
}

// Delays returns a copy of the recorded delays.
func (r *Recorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// Total sums the recorded delays.
func (r *Recorder) Total() time.Duration {
	var total time.Duration
	for _, delay := range r.Delays() {
		total += delay
	}
	return total
}
