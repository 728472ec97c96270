// Package poll waits for UI conditions with a deadline and a fixed pause between checks.
package poll

import (
	"context"
	"fmt"
	"time"

	"RendaBot/internal/model"
)

// DefaultInterval is the pause between checks when none is given.
const DefaultInterval = 500 * time.Millisecond

// NotFoundError is returned when a condition was not met before the timeout.
type NotFoundError struct {
	What    string
	Timeout time.Duration
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found after %v: %s", e.Timeout, e.What)
}

func (e *NotFoundError) Unwrap() error { return model.ErrElementNotFound }

// Target describes one bounded wait.
type Target struct {
	What     string // selector or condition label, reported on timeout
	Timeout  time.Duration
	Interval time.Duration
}

func (s Target) interval() time.Duration {
	if s.Interval <= 0 {
		return DefaultInterval
	}
	return s.Interval
}

// Value calls fn until it reports ok or the timeout elapses.
// An error from fn aborts the wait immediately.
func Value[T any](ctx context.Context, s Target, fn func(ctx context.Context) (T, bool, error)) (T, error) {
	var zero T
	deadline := time.Now().Add(s.Timeout)
	for {
		v, ok, err := fn(ctx)
		if err != nil {
			return zero, fmt.Errorf("%s: %w", s.What, err)
		}
		if ok {
			return v, nil
		}
		if !time.Now().Before(deadline) {
			return zero, &NotFoundError{What: s.What, Timeout: s.Timeout}
		}
		if err := Sleep(ctx, s.interval()); err != nil {
			return zero, err
		}
	}
}

// Until waits for a boolean condition.
func Until(ctx context.Context, s Target, cond func(ctx context.Context) (bool, error)) error {
	_, err := Value(ctx, s, func(ctx context.Context) (struct{}, bool, error) {
		ok, err := cond(ctx)
		return struct{}{}, ok, err
	})
	return err
}

// Stable samples fn until two consecutive samples are equal and returns that value.
// Comparable values only: scroll offsets, row counts.
func Stable[T comparable](ctx context.Context, s Target, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		prev T
		have bool
	)
	return Value(ctx, s, func(ctx context.Context) (T, bool, error) {
		cur, err := fn(ctx)
		if err != nil {
			return cur, false, err
		}
		if have && cur == prev {
			return cur, true, nil
		}
		prev, have = cur, true
		return cur, false, nil
	})
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
