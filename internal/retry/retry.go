// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry holds the delay policy applied to retryable collaborator
// errors.
package retry

import (
	"context"
	"math"
	"time"
)

// Policy describes how many times an operation is attempted and how long to
// wait after each retryable failure.
//
// The wait after attempt n (1-based) is Delay * Multiplier^(n-1). A
// Multiplier of 1 gives a fixed delay; 2 doubles it every attempt.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
}

// Attempts returns the number of attempts, never less than one.
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the wait after the given 1-based attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	m := p.Multiplier
	if m < 1 {
		m = 1
	}
	return time.Duration(float64(p.Delay) * math.Pow(m, float64(attempt-1)))
}

// Sleep waits for d or until ctx is done, whichever comes first. It returns
// ctx.Err() when the wait was cut short.
func Sleep(ctx context.Context, d time.Duration) error {
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
