// Package cycle runs the follow lifecycle: admitting candidates, following,
// unfollowing and sweeping pending users into the unfollow queue.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/robalyx/followbot/internal/api"
	"github.com/robalyx/followbot/internal/notify"
	"github.com/robalyx/followbot/internal/progress"
	"github.com/robalyx/followbot/internal/setup/config"
	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/worker/core"
	"github.com/robalyx/followbot/pkg/utils"
	"go.uber.org/zap"
)

// LifecycleSource provides the lifecycle settings for each cycle.
// On error the returned snapshot is still used.
type LifecycleSource interface {
	Lifecycle() (config.Lifecycle, error)
}

// Waiter blocks between actions.
type Waiter interface {
	Wait(ctx context.Context, minimum, maximum int) error
}

// Worker is the follow cycle orchestrator.
// All store access goes through Store.WithLock and no network call is made
// while the lock is held.
type Worker struct {
	store    *store.Store
	client   api.Client
	notifier notify.Notifier
	source   LifecycleSource
	waiter   Waiter
	rng      *rand.Rand
	bar      *progress.Bar
	reporter *core.StatusReporter
	logger   *zap.Logger
	now      func() time.Time

	state     atomic.Int32
	seedIndex int
	snapshots snapshots
}

// Option configures a Worker.
type Option func(*Worker)

// WithBar reports cycle progress on a progress bar.
func WithBar(bar *progress.Bar) Option {
	return func(w *Worker) { w.bar = bar }
}

// WithReporter publishes cycle progress through a status reporter.
func WithReporter(reporter *core.StatusReporter) Option {
	return func(w *Worker) { w.reporter = reporter }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// WithRand sets the source used to draw the number of actions per cycle.
func WithRand(rng *rand.Rand) Option {
	return func(w *Worker) { w.rng = rng }
}

// New creates a cycle worker.
func New(
	st *store.Store,
	client api.Client,
	notifier notify.Notifier,
	source LifecycleSource,
	waiter Waiter,
	logger *zap.Logger,
	opts ...Option,
) *Worker {
	w := &Worker{
		store:    st,
		client:   client,
		notifier: notifier,
		source:   source,
		waiter:   waiter,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // scheduling only
		logger:   logger.Named("cycle_worker"),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// State returns the step currently executing.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Start runs cycles until the context is cancelled.
// A failed cycle is logged and followed by the normal delay.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Cycle Worker started")

	if w.reporter != nil {
		w.reporter.Start(ctx)
		defer w.reporter.Stop()
	}

	if w.bar != nil {
		w.bar.SetTotal(100)
	}

	if err := w.Reconcile(ctx); err != nil {
		w.logger.Error("Failed to reconcile collections", zap.Error(err))
	}

	w.notifier.Notify(ctx, notify.KindOnline, notify.Payload{
		Message: "Follow cycle worker is now online.",
		At:      w.now(),
	})

	for {
		if utils.ContextGuardWithLog(ctx, w.logger, "Context cancelled, stopping cycle worker") {
			return
		}

		if w.bar != nil {
			w.bar.Reset()
		}
		if w.reporter != nil {
			w.reporter.SetHealthy(true)
		}

		lc := w.lifecycle()
		if err := w.runCycle(ctx, lc); err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Context cancelled during cycle, stopping cycle worker")
				return
			}

			w.logger.Error("Cycle finished with errors", zap.Error(err))
			if w.reporter != nil {
				w.reporter.SetHealthy(false)
			}
		}

		w.setState(StateIdle, "Waiting for next cycle", 100)
		if err := w.waiter.Wait(ctx, lc.MinWaitTimeSeconds, lc.MaxWaitTimeSeconds); err != nil {
			w.logger.Info("Context cancelled during pause, stopping cycle worker")
			return
		}
	}
}

// RunCycle runs a single cycle with a freshly loaded lifecycle snapshot.
func (w *Worker) RunCycle(ctx context.Context) error {
	return w.runCycle(ctx, w.lifecycle())
}

// runCycle executes every step in order. A failing step does not stop the
// remaining steps unless the context is done.
func (w *Worker) runCycle(ctx context.Context, lc config.Lifecycle) error {
	defer w.setState(StateIdle, "Cycle complete", 100)

	steps := []struct {
		state   State
		message string
		percent int64
		run     func(context.Context, config.Lifecycle) error
	}{
		{StateAdmitting, "Admitting candidates", 0, w.admit},
		{StateFollowing, "Following users", 25, w.follow},
		{StateUnfollowing, "Unfollowing users", 50, w.unfollow},
		{StateSweeping, "Sweeping pending users", 75, w.sweep},
	}

	var errs []error
	for _, step := range steps {
		w.setState(step.state, step.message, step.percent)

		if err := step.run(ctx, lc); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			w.logger.Error("Cycle step failed", zap.String("step", step.state.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", step.state, err))
		}
	}

	return errors.Join(errs...)
}

// lifecycle loads the settings for the next cycle.
func (w *Worker) lifecycle() config.Lifecycle {
	lc, err := w.source.Lifecycle()
	if err != nil {
		w.logger.Warn("Failed to reload lifecycle settings, using previous values", zap.Error(err))
	}
	return lc
}

// wait pauses between actions.
func (w *Worker) wait(ctx context.Context, lc config.Lifecycle) error {
	return w.waiter.Wait(ctx, lc.MinWaitTimeSeconds, lc.MaxWaitTimeSeconds)
}

func (w *Worker) setState(state State, message string, percent int64) {
	w.state.Store(int32(state))

	if w.bar != nil {
		w.bar.SetStepMessage(message, percent)
	}
	if w.reporter != nil {
		w.reporter.UpdateStatus(message, int(percent))
	}
}

// withStore runs fn under the store lock.
func (w *Worker) withStore(fn func(c *store.Collections) error) error {
	return w.store.WithLock(fn)
}

// notifyQueued announces users moved into the unfollow queue.
func (w *Worker) notifyQueued(ctx context.Context, entries []types.UnfollowEntry) {
	for _, entry := range entries {
		w.notifier.Notify(ctx, notify.KindQueuedUnfollow, notify.Payload{
			User:           entry.User,
			FollowedOn:     entry.FollowedOn,
			AddedToQueueOn: entry.AddedToQueueOn,
			Reason:         entry.UnfollowReason,
			At:             entry.AddedToQueueOn,
		})
	}
}
