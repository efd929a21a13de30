// Package ratelimit provides a ticker-based pacer with optional jitter, used
// to space out calls against the generative model endpoints.
package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter spaces operations at a fixed rate. A zero-rate limiter never blocks.
// Safe for concurrent use.
type Limiter struct {
	ticker   *time.Ticker
	interval time.Duration
	jitter   float64
	ch       <-chan time.Time
}

// NewLimiter creates a limiter allowing rps operations per second. jitter is
// clamped to [0, 1] and randomizes each wait by up to that fraction of the
// interval. rps <= 0 yields a pass-through limiter.
func NewLimiter(rps, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	interval := time.Duration(float64(time.Second) / rps)
	ticker := time.NewTicker(interval)
	return &Limiter{
		ticker:   ticker,
		interval: interval,
		jitter:   jitter,
		ch:       ticker.C,
	}
}

// Wait blocks until the next slot opens or the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
	}

	if l.jitter <= 0 {
		return nil
	}

	// Only positive draws delay; the ticker already enforces the minimum
	// interval, so a negative draw simply fires on the tick.
	extra := time.Duration(float64(l.interval) * l.jitter * ((rand.Float64() * 2) - 1))
	if extra <= 0 {
		return nil
	}

	select {
	case <-time.After(extra):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases the underlying ticker.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
