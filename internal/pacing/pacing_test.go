package pacing_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/robalyx/followbot/internal/pacing"
	"github.com/robalyx/followbot/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNextDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		min, max int
		wantLow  int
		wantHigh int
	}{
		{name: "normal range", min: 30, max: 90, wantLow: 30, wantHigh: 90},
		{name: "equal bounds", min: 5, max: 5, wantLow: 5, wantHigh: 5},
		{name: "swapped bounds", min: 9, max: 3, wantLow: 3, wantHigh: 9},
		{name: "negative clamps to zero", min: -10, max: 2, wantLow: 0, wantHigh: 2},
		{name: "all zero", min: 0, max: 0, wantLow: 0, wantHigh: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rng := rand.New(rand.NewPCG(1, 2))
			seen := make(map[int]bool)
			for range 2000 {
				d := pacing.NextDelay(rng, tt.min, tt.max)
				require.GreaterOrEqual(t, d, tt.wantLow)
				require.LessOrEqual(t, d, tt.wantHigh)
				seen[d] = true
			}

			// Both ends of the inclusive range are reachable
			assert.True(t, seen[tt.wantLow])
			assert.True(t, seen[tt.wantHigh])
		})
	}
}

func TestPacerWait(t *testing.T) {
	t.Parallel()

	bar := progress.NewBar(1, 10, "test")
	p := pacing.New(rand.New(rand.NewPCG(1, 2)), zap.NewNop(),
		pacing.WithUnit(time.Millisecond), pacing.WithBar(bar))

	start := time.Now()
	require.NoError(t, p.Wait(t.Context(), 3, 3))
	assert.GreaterOrEqual(t, time.Since(start), 3*time.Millisecond)
	assert.InDelta(t, 100.0, bar.Percent(), 0.001)
}

func TestPacerWaitCancelled(t *testing.T) {
	t.Parallel()

	p := pacing.New(rand.New(rand.NewPCG(1, 2)), zap.NewNop())

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := p.Wait(ctx, 60, 60)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPacerZeroDelay(t *testing.T) {
	t.Parallel()

	p := pacing.New(rand.New(rand.NewPCG(1, 2)), zap.NewNop())
	require.NoError(t, p.Wait(t.Context(), 0, 0))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, p.Wait(ctx, 0, 0), context.Canceled)
}
