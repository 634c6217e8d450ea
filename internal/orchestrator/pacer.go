package orchestrator

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer delays an external action. Wait is called before every attempt and
// returns early with the context's error when ctx is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedPacer waits a fixed interval before every attempt, including the first.
type FixedPacer struct {
	Interval time.Duration
}

// Wait implements Pacer.
func (p FixedPacer) Wait(ctx context.Context) error {
	if p.Interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LimiterPacer shares one token bucket across every orchestration using it,
// so concurrent runs together stay under the platform's request rate.
type LimiterPacer struct {
	limiter *rate.Limiter
}

// NewLimiterPacer allows requestsPerMinute attempts per minute with no burst.
func NewLimiterPacer(requestsPerMinute int) *LimiterPacer {
	return &LimiterPacer{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// Wait implements Pacer.
func (p *LimiterPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

type chainPacer []Pacer

func (c chainPacer) Wait(ctx context.Context) error {
	for _, p := range c {
		if err := p.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// NewPacer combines a fixed minimum interval with an optional shared rate
// limit. A non-positive requestsPerMinute disables the limiter.
func NewPacer(minInterval time.Duration, requestsPerMinute int) Pacer {
	fixed := FixedPacer{Interval: minInterval}
	if requestsPerMinute <= 0 {
		return fixed
	}
	return chainPacer{fixed, NewLimiterPacer(requestsPerMinute)}
}
