package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"censys-toolkit/internal/api"
)

const (
	DefaultMaxRetries = 3
	MaxBackoff        = 30 * time.Second
)

// State is the position of one fetch in the retry loop.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateBackoff
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// CollectionFailedError is returned once a page could not be fetched within the retry budget.
type CollectionFailedError struct {
	Index    api.Index
	Attempts int
	Err      error
}

func (e *CollectionFailedError) Error() string {
	return fmt.Sprintf("%s collection failed after %d attempts: %v", e.Index, e.Attempts, e.Err)
}

func (e *CollectionFailedError) Unwrap() error {
	return e.Err
}

// BackoffFunc returns the wait before retry number n (starting at 1).
type BackoffFunc func(retry int) time.Duration

// DefaultBackoff grows as 2^n + 0.1n seconds, capped at MaxBackoff.
func DefaultBackoff(retry int) time.Duration {
	secs := math.Pow(2, float64(retry)) + 0.1*float64(retry)
	d := time.Duration(secs * float64(time.Second))
	if d > MaxBackoff || d <= 0 {
		return MaxBackoff
	}
	return d
}

// Retrier runs an operation up to MaxRetries+1 times, retrying transient errors only.
type Retrier struct {
	Index      api.Index
	MaxRetries int
	Backoff    BackoffFunc
	// OnBackoff, when set, is called before each wait.
	OnBackoff func(retry int, wait time.Duration, err error)
	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
}

// Do runs op until it succeeds, fails permanently or the retry budget is spent.
func (r *Retrier) Do(ctx context.Context, op func(context.Context) error) error {
	backoff := r.Backoff
	if backoff == nil {
		backoff = DefaultBackoff
	}
	maxRetries := r.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	state := StateIdle
	move := func(to State) {
		if r.OnTransition != nil {
			r.OnTransition(state, to)
		}
		state = to
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			move(StateFailed)
			return err
		}

		move(StateAttempting)
		lastErr = op(ctx)
		if lastErr == nil {
			move(StateSucceeded)
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			move(StateFailed)
			return lastErr
		}
		if !api.IsRetryable(lastErr) {
			move(StateFailed)
			return lastErr
		}
		if attempt > maxRetries {
			move(StateFailed)
			return &CollectionFailedError{Index: r.Index, Attempts: attempt, Err: lastErr}
		}

		wait := backoff(attempt)
		if hint := api.RetryAfter(lastErr); hint > wait {
			wait = min(hint, MaxBackoff)
		}
		move(StateBackoff)
		if r.OnBackoff != nil {
			r.OnBackoff(attempt, wait, lastErr)
		}
		if err := sleep(ctx, wait); err != nil {
			move(StateFailed)
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
