package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/followbot/pkg/utils"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestContextSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		duration    time.Duration
		cancelFirst bool
		expected    utils.SleepResult
	}{
		{name: "completes", duration: 5 * time.Millisecond, expected: utils.SleepCompleted},
		{name: "zero duration", duration: 0, expected: utils.SleepCompleted},
		{name: "negative duration", duration: -time.Second, expected: utils.SleepCompleted},
		{name: "cancelled", duration: time.Hour, cancelFirst: true, expected: utils.SleepCancelled},
		{name: "cancelled with zero duration", duration: 0, cancelFirst: true, expected: utils.SleepCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()
			if tt.cancelFirst {
				cancel()
			}

			assert.Equal(t, tt.expected, utils.ContextSleep(ctx, tt.duration))
		})
	}
}

func TestContextSleepUntilPast(t *testing.T) {
	t.Parallel()

	result := utils.ContextSleepUntil(t.Context(), time.Now().Add(-time.Minute))
	assert.Equal(t, utils.SleepCompleted, result)
}

func TestContextGuardWithLog(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	assert.False(t, utils.ContextGuardWithLog(ctx, zap.NewNop(), "stopping"))

	cancel()
	assert.True(t, utils.ContextGuardWithLog(ctx, zap.NewNop(), "stopping"))
	assert.True(t, utils.ContextGuardWithLog(ctx, nil, ""))
}

func TestErrorSleep(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	assert.True(t, utils.ErrorSleep(ctx, time.Millisecond, zap.NewNop(), "cycle worker"))

	cancel()
	assert.False(t, utils.ErrorSleep(ctx, time.Hour, nil, "cycle worker"))
}

func TestNextMidnight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{
			name:     "mid day",
			now:      time.Date(2025, 3, 14, 15, 4, 5, 0, time.UTC),
			expected: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "exactly midnight",
			now:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "end of year",
			now:      time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
			expected: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, utils.NextMidnight(tt.now))
		})
	}
}
