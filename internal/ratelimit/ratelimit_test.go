package ratelimit

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveDelay_MonotonicInErrorCount(t *testing.T) {
	bases := []time.Duration{250 * time.Millisecond, time.Second, 5 * time.Second}
	latencies := []time.Duration{0, 300 * time.Millisecond, 4 * time.Second, 90 * time.Second}

	for _, base := range bases {
		for _, latency := range latencies {
			prev := time.Duration(0)
			for errs := 0; errs <= 200; errs++ {
				d := AdaptiveDelay(base, errs, latency)
				assert.GreaterOrEqual(t, d, prev, "base=%v latency=%v errors=%d", base, latency, errs)
				prev = d
			}
		}
	}
}

func TestAdaptiveDelay_Values(t *testing.T) {
	tests := []struct {
		name     string
		base     time.Duration
		errors   int
		latency  time.Duration
		expected time.Duration
	}{
		{"no errors no latency", 2 * time.Second, 0, 0, 2 * time.Second},
		{"two errors", 2 * time.Second, 2, 0, 4 * time.Second},
		{"latency credit", 2 * time.Second, 0, time.Second, 1500 * time.Millisecond},
		{"credit capped at half", 2 * time.Second, 0, 30 * time.Second, time.Second},
		{"capped at max", 10 * time.Second, 1000, 0, 60 * time.Second},
		{"floor", 100 * time.Millisecond, 0, 0, MinBaseDelay},
		{"negative errors", 2 * time.Second, -3, 0, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AdaptiveDelay(tt.base, tt.errors, tt.latency))
		})
	}
}

func TestJitter(t *testing.T) {
	d := 10 * time.Second

	assert.Equal(t, 6*time.Second, Jitter(d, 0.4, func() float64 { return 0 }))
	assert.Equal(t, 10*time.Second, Jitter(d, 0.4, func() float64 { return 0.5 }))
	assert.InDelta(t, float64(14*time.Second), float64(Jitter(d, 0.4, func() float64 { return 0.999999 })), float64(time.Millisecond))
	assert.Equal(t, d, Jitter(d, 0, nil))
	assert.Equal(t, time.Duration(math.MaxInt64), Jitter(time.Duration(math.MaxInt64), 0.4, func() float64 { return 0.999 }))

	for i := 0; i < 100; i++ {
		j := Jitter(d, DefaultJitterRatio, nil)
		assert.GreaterOrEqual(t, j, 6*time.Second)
		assert.Less(t, j, 14*time.Second)
	}
}

func TestSleep(t *testing.T) {
	t.Run("waits", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Sleep(ctx, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParseBaseDelay(t *testing.T) {
	tests := []struct {
		name     string
		ms       float64
		expected time.Duration
		wantErr  bool
	}{
		{"valid", 1500, 1500 * time.Millisecond, false},
		{"zero clamps to floor", 0, MinBaseDelay, false},
		{"below floor", 100, MinBaseDelay, false},
		{"just below ceiling", 86_399_000, 86_399 * time.Second, false},
		{"ceiling", 86_400_000, MaxBaseDelay, false},
		{"huge clamps to ceiling", 1e13, MaxBaseDelay, false},
		{"beyond Duration range", 1e300, MaxBaseDelay, false},
		{"negative", -1, 0, true},
		{"NaN", math.NaN(), 0, true},
		{"Inf", math.Inf(1), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseBaseDelay(tt.ms)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidDelay))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestPacer(t *testing.T) {
	p := NewPacer(2*time.Second, DefaultAdaptiveConfig())
	p.SetRand(func() float64 { return 0.5 })

	assert.Equal(t, 2*time.Second, p.Next(0, 0))
	assert.Equal(t, 3*time.Second, p.Next(1, 0))

	require.NoError(t, p.SetBaseDelay(4000))
	assert.Equal(t, 4*time.Second, p.BaseDelay())

	assert.Error(t, p.SetBaseDelay(math.NaN()))
	assert.Equal(t, 4*time.Second, p.BaseDelay(), "invalid delay keeps previous value")

	require.NoError(t, p.SetBaseDelay(10))
	assert.Equal(t, MinBaseDelay, p.BaseDelay())
}
