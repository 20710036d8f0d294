package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SleepResult represents the outcome of a context-aware sleep operation.
type SleepResult int

const (
	// SleepCompleted indicates the sleep duration completed normally.
	SleepCompleted SleepResult = iota
	// SleepCancelled indicates the context was cancelled during sleep.
	SleepCancelled
)

// ContextSleep sleeps for the specified duration while respecting context cancellation.
func ContextSleep(ctx context.Context, duration time.Duration) SleepResult {
	if duration <= 0 {
		if ctx.Err() != nil {
			return SleepCancelled
		}
		return SleepCompleted
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SleepCompleted
	case <-ctx.Done():
		return SleepCancelled
	}
}

// ContextSleepUntil waits until the target time while respecting context cancellation.
func ContextSleepUntil(ctx context.Context, target time.Time) SleepResult {
	return ContextSleep(ctx, time.Until(target))
}

// ContextGuardWithLog checks if the context is cancelled and logs a message if so.
// Returns true if context is cancelled, false otherwise.
func ContextGuardWithLog(ctx context.Context, logger *zap.Logger, cancelMessage string) bool {
	select {
	case <-ctx.Done():
		if logger != nil && cancelMessage != "" {
			logger.Info(cancelMessage)
		}
		return true
	default:
		return false
	}
}

// ErrorSleep pauses a worker after a failed iteration.
// Returns true if the worker should continue, false if the context was cancelled.
func ErrorSleep(ctx context.Context, duration time.Duration, logger *zap.Logger, workerName string) bool {
	return sleepWithLog(ctx, duration, logger, "Context cancelled during error wait, stopping "+workerName)
}

// NextMidnight returns the next local midnight strictly after now.
func NextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}

func sleepWithLog(ctx context.Context, duration time.Duration, logger *zap.Logger, cancelMessage string) bool {
	if ContextSleep(ctx, duration) == SleepCancelled {
		if logger != nil {
			logger.Info(cancelMessage)
		}
		return false
	}
	return true
}
