// Package pacing provides the waits inserted between and during page loads.
package pacing

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/metrics"
)

const (
	// DefaultMinDelay is the lower bound of the inter-keyword delay.
	DefaultMinDelay = 3 * time.Second
	// DefaultMaxDelay is the upper bound of the inter-keyword delay.
	DefaultMaxDelay = 6 * time.Second
)

// TimerSleeper blocks on a timer, returning early when the context ends.
type TimerSleeper struct{}

// Sleep waits for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
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

type sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RandomPacer sleeps for a uniformly distributed delay in [min, max].
type RandomPacer struct {
	min, max time.Duration
	sleeper  sleeper
	rand     func(limit int64) int64
}

// NewRandomPacer validates the range and returns a pacer. A nil sleeper uses
// TimerSleeper.
func NewRandomPacer(minDelay, maxDelay time.Duration, s sleeper) (*RandomPacer, error) {
	if minDelay < 0 || maxDelay < minDelay {
		return nil, fmt.Errorf("invalid pacing range [%s, %s]", minDelay, maxDelay)
	}
	if s == nil {
		s = TimerSleeper{}
	}
	return &RandomPacer{min: minDelay, max: maxDelay, sleeper: s, rand: cryptoInt63n}, nil
}

// Next draws the next delay without sleeping.
func (p *RandomPacer) Next() time.Duration {
	span := int64(p.max - p.min)
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(p.rand(span+1))
}

// Pause sleeps for the next delay and reports it.
func (p *RandomPacer) Pause(ctx context.Context) (time.Duration, error) {
	d := p.Next()
	if err := p.sleeper.Sleep(ctx, d); err != nil {
		return 0, fmt.Errorf("pacing delay: %w", err)
	}
	metrics.ObservePacingDelay(d)
	return d, nil
}

func cryptoInt63n(limit int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(limit))
	if err != nil {
		return limit / 2
	}
	return n.Int64()
}
