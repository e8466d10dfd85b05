// Package ratelimit caps request arrival rate across the worker pool.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a run-wide requests-per-second cap, applied on top of
// per-worker think-time. A zero rate disables limiting.
type Limiter struct {
	limiter *rate.Limiter
}

func NewLimiter(rps int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Wait blocks until a send is permitted or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limiter.Limit() == 0 {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}
