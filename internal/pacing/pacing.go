// Package pacing spaces out follow and unfollow actions with random delays.
package pacing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robalyx/followbot/internal/progress"
	"go.uber.org/zap"
)

// NextDelay returns a uniformly distributed delay in [minimum, maximum] seconds.
func NextDelay(rng *rand.Rand, minimum, maximum int) int {
	return Between(rng, minimum, maximum)
}

// Between returns a uniformly distributed integer in [minimum, maximum].
// Swapped bounds are normalized and negative bounds clamp to zero.
func Between(rng *rand.Rand, minimum, maximum int) int {
	minimum, maximum = max(minimum, 0), max(maximum, 0)
	if minimum > maximum {
		minimum, maximum = maximum, minimum
	}
	return minimum + rng.IntN(maximum-minimum+1)
}

// Pacer blocks between actions for a random number of seconds.
type Pacer struct {
	rng    *rand.Rand
	bar    *progress.Bar
	logger *zap.Logger
	unit   time.Duration
	mu     sync.Mutex
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithBar reports the remaining wait on a progress bar.
func WithBar(bar *progress.Bar) Option {
	return func(p *Pacer) { p.bar = bar }
}

// WithUnit changes the length of one delay step. Defaults to a second.
func WithUnit(unit time.Duration) Option {
	return func(p *Pacer) { p.unit = unit }
}

// New creates a Pacer drawing delays from rng.
func New(rng *rand.Rand, logger *zap.Logger, opts ...Option) *Pacer {
	p := &Pacer{
		rng:    rng,
		logger: logger.Named("pacer"),
		unit:   time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay draws the next delay.
func (p *Pacer) Delay(minimum, maximum int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return NextDelay(p.rng, minimum, maximum)
}

// Wait blocks for a random delay in [minimum, maximum] units.
// It returns ctx.Err() as soon as the context is cancelled.
func (p *Pacer) Wait(ctx context.Context, minimum, maximum int) error {
	delay := p.Delay(minimum, maximum)
	p.logger.Debug("Waiting before next action", zap.Int("seconds", delay))

	if p.bar != nil {
		p.bar.Reset()
		p.bar.SetTotal(int64(max(delay, 1)))
		p.bar.SetStepMessage(fmt.Sprintf("Waiting %ds", delay), 0)
	}

	if delay == 0 {
		return ctx.Err()
	}

	ticker := time.NewTicker(p.unit)
	defer ticker.Stop()

	for elapsed := 0; elapsed < delay; elapsed++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p.bar != nil {
				p.bar.Increment(1)
			}
		}
	}

	return nil
}
