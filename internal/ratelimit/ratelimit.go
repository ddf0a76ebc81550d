package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// MinBaseDelay is the floor applied to any base delay set at runtime.
	MinBaseDelay       = 250 * time.Millisecond
	// MaxBaseDelay is the ceiling applied to any base delay set at runtime.
	MaxBaseDelay       = 24 * time.Hour
	DefaultBaseDelay   = 3 * time.Second
	DefaultJitterRatio = 0.4
)

var ErrInvalidDelay = errors.New("delay must be a finite non-negative number")

// AdaptiveConfig shapes the inter-item delay.
//
// The delay grows linearly with the error count (ErrorFactor per error) and is
// capped at MaxDelay. Part of the last observed latency (LatencyCredit) is
// credited against the result, but never more than half of it, so a slow
// server does not stack on top of an already long pause.
type AdaptiveConfig struct {
	ErrorFactor   float64
	MaxDelay      time.Duration
	LatencyCredit float64
}

func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		ErrorFactor:   0.5,
		MaxDelay:      60 * time.Second,
		LatencyCredit: 0.5,
	}
}

// AdaptiveDelay computes the pause before the next item using the default
// configuration.
func AdaptiveDelay(base time.Duration, errorCount int, lastLatency time.Duration) time.Duration {
	return DefaultAdaptiveConfig().Delay(base, errorCount, lastLatency)
}

// Delay is non-decreasing in errorCount for a fixed base and latency.
func (c AdaptiveConfig) Delay(base time.Duration, errorCount int, lastLatency time.Duration) time.Duration {
	if base < MinBaseDelay {
		base = MinBaseDelay
	}
	if errorCount < 0 {
		errorCount = 0
	}
	if lastLatency < 0 {
		lastLatency = 0
	}

	ceiling := c.MaxDelay
	if ceiling < base {
		ceiling = base
	}

	backoff := float64(base) * (1 + c.ErrorFactor*float64(errorCount))
	if backoff > float64(ceiling) {
		backoff = float64(ceiling)
	}

	credit := math.Min(float64(lastLatency)*c.LatencyCredit, backoff/2)
	delay := time.Duration(backoff - credit)

	if delay < MinBaseDelay {
		delay = MinBaseDelay
	}
	return delay
}

// Jitter spreads d uniformly over [d*(1-ratio), d*(1+ratio)). rnd must return
// values in [0, 1); nil uses math/rand/v2.
func Jitter(d time.Duration, ratio float64, rnd func() float64) time.Duration {
	if d <= 0 || ratio <= 0 {
		return d
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	factor := 1 + ratio*(2*rnd()-1)
	out := float64(d) * factor
	if out <= 0 {
		return 0
	}
	if out >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(out)
}

// Sleep waits for d or until ctx is done.
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

// ParseBaseDelay validates a delay given in milliseconds and clamps it to
// [MinBaseDelay, MaxBaseDelay].
func ParseBaseDelay(ms float64) (time.Duration, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDelay, ms)
	}
	// compare before converting, large values overflow time.Duration
	if ms >= float64(MaxBaseDelay/time.Millisecond) {
		return MaxBaseDelay, nil
	}
	d := time.Duration(ms * float64(time.Millisecond))
	if d < MinBaseDelay {
		d = MinBaseDelay
	}
	return d, nil
}

// Pacer holds the runtime-adjustable base delay of a scrape run.
type Pacer struct {
	mu       sync.Mutex
	base     time.Duration
	adaptive AdaptiveConfig
	jitter   float64
	rnd      func() float64
}

func NewPacer(base time.Duration, cfg AdaptiveConfig) *Pacer {
	if base < MinBaseDelay {
		base = MinBaseDelay
	}
	if base > MaxBaseDelay {
		base = MaxBaseDelay
	}
	return &Pacer{
		base:     base,
		adaptive: cfg,
		jitter:   DefaultJitterRatio,
		rnd:      rand.Float64,
	}
}

// SetBaseDelay replaces the base delay. Invalid values are rejected and the
// previous delay is kept.
func (p *Pacer) SetBaseDelay(ms float64) error {
	d, err := ParseBaseDelay(ms)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = d
	return nil
}

func (p *Pacer) BaseDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.base
}

// SetRand swaps the jitter source, mainly for tests.
func (p *Pacer) SetRand(rnd func() float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rnd = rnd
}

// Next returns the jittered pause before the next item.
func (p *Pacer) Next(errorCount int, lastLatency time.Duration) time.Duration {
	p.mu.Lock()
	base, cfg, ratio, rnd := p.base, p.adaptive, p.jitter, p.rnd
	p.mu.Unlock()

	return Jitter(cfg.Delay(base, errorCount, lastLatency), ratio, rnd)
}
