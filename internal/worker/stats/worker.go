// Package stats computes and publishes the daily lifecycle metrics.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"github.com/robalyx/followbot/internal/notify"
	"github.com/robalyx/followbot/internal/progress"
	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/worker/core"
	"github.com/robalyx/followbot/pkg/utils"
	"go.uber.org/zap"
)

const (
	// reportKeyPrefix namespaces the stored daily reports.
	reportKeyPrefix = "followbot:metrics:"

	// defaultRetryDelay is the pause before a failed report is retried.
	defaultRetryDelay = 5 * time.Minute

	// reportTTL is how long a stored report is kept, in the metrics log
	// and in Redis.
	reportTTL = 90 * 24 * time.Hour
)

// ErrReportNotFound is returned when no report is stored for a date.
var ErrReportNotFound = errors.New("metrics report not found")

// Worker publishes the metrics report at startup and every midnight.
// It only reads collections, always under the store lock.
type Worker struct {
	store    *store.Store
	redis    rueidis.Client
	notifier notify.Notifier
	bar      *progress.Bar
	reporter *core.StatusReporter
	logger   *zap.Logger
	now      func() time.Time

	retryDelay time.Duration
}

// Option configures a Worker.
type Option func(*Worker)

// WithBar reports progress on a progress bar.
func WithBar(bar *progress.Bar) Option {
	return func(w *Worker) { w.bar = bar }
}

// WithReporter publishes progress through a status reporter.
func WithReporter(reporter *core.StatusReporter) Option {
	return func(w *Worker) { w.reporter = reporter }
}

// WithRetryDelay sets the pause before a failed report is retried.
func WithRetryDelay(delay time.Duration) Option {
	return func(w *Worker) { w.retryDelay = delay }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// New creates a stats worker. Reports are kept in the store's metrics log.
// redisClient may be nil, in which case reports are not mirrored to Redis.
func New(st *store.Store, redisClient rueidis.Client, notifier notify.Notifier, logger *zap.Logger, opts ...Option) *Worker {
	w := &Worker{
		store:    st,
		redis:    redisClient,
		notifier: notifier,
		logger:   logger.Named("stats_worker"),
		now:      time.Now,

		retryDelay: defaultRetryDelay,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start publishes a report immediately and then once every midnight.
// A failed report is retried after the retry delay.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Statistics Worker started")

	if w.reporter != nil {
		w.reporter.Start(ctx)
		defer w.reporter.Stop()
	}

	if w.bar != nil {
		w.bar.SetTotal(100)
	}

	for {
		if w.bar != nil {
			w.bar.Reset()
		}
		if w.reporter != nil {
			w.reporter.SetHealthy(true)
		}

		if _, err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to publish daily metrics", zap.Error(err))
			if w.reporter != nil {
				w.reporter.SetHealthy(false)
			}

			w.step("Retrying after failure", 100)
			if !utils.ErrorSleep(ctx, w.retryDelay, w.logger, "statistics worker") {
				return
			}
			continue
		}

		w.step("Waiting for midnight", 100)
		if utils.ContextSleepUntil(ctx, utils.NextMidnight(w.now())) == utils.SleepCancelled {
			w.logger.Info("Context cancelled, stopping statistics worker")
			return
		}
	}
}

// RunOnce collects, stores and announces one report.
func (w *Worker) RunOnce(ctx context.Context) (*types.MetricsReport, error) {
	w.step("Collecting metrics", 0)
	report, err := w.Collect(ctx)
	if err != nil {
		return nil, err
	}

	w.step("Storing metrics", 50)
	if err := w.save(ctx, report); err != nil {
		return nil, err
	}

	w.step("Sending metrics", 75)
	w.logger.Info("Daily metrics",
		zap.Int("followsLastDay", report.Follows.LastDay),
		zap.Int("followsLastWeek", report.Follows.LastWeek),
		zap.Int("followsLastMonth", report.Follows.LastMonth),
		zap.Int("unfollowsLastDay", report.Unfollows.LastDay),
		zap.Int("unfollowsLastWeek", report.Unfollows.LastWeek),
		zap.Int("unfollowsLastMonth", report.Unfollows.LastMonth),
		zap.Int("followQueue", report.General.FollowQueue),
		zap.Int("pending", report.General.PendingFollowBack),
		zap.Int("unfollowQueue", report.General.UnfollowQueue),
		zap.Int("followers", report.General.CurrentFollowers))
	w.notifier.Notify(ctx, notify.KindDailyMetrics, notify.Payload{Metrics: report, At: report.Date})

	w.step("Metrics published", 100)
	return report, nil
}

// Collect computes the current report from the store.
func (w *Worker) Collect(ctx context.Context) (*types.MetricsReport, error) {
	var report *types.MetricsReport

	err := w.store.WithLock(func(c *store.Collections) error {
		pending, err := c.Pending.GetAll(ctx)
		if err != nil {
			return err
		}
		pastActions, err := c.PastActions.GetAll(ctx)
		if err != nil {
			return err
		}

		general := types.GeneralCounts{
			PendingFollowBack: pending.Len(),
			PastActions:       pastActions.Len(),
		}
		counts := []struct {
			target *int
			count  func(context.Context) (int, error)
		}{
			{&general.FollowQueue, c.FollowQueue.Count},
			{&general.UnfollowQueue, c.UnfollowQueue.Count},
			{&general.UsersFollowed, c.Followed.Count},
			{&general.CurrentFollowers, c.Followers.Count},
		}
		for _, item := range counts {
			if *item.target, err = item.count(ctx); err != nil {
				return err
			}
		}

		report = Compute(w.now(), pending, pastActions, general)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	return report, nil
}

// Load returns the stored report for the given day. The store is read first
// and Redis, when configured, serves reports missing from it.
func (w *Worker) Load(ctx context.Context, date time.Time) (*types.MetricsReport, error) {
	var (
		report types.MetricsReport
		found  bool
	)

	err := w.store.WithLock(func(c *store.Collections) error {
		reports, err := c.MetricsLog.GetAll(ctx)
		if err != nil {
			return err
		}
		report, found = reports.Get(reportID(date))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics report: %w", err)
	}
	if found {
		return &report, nil
	}

	if w.redis == nil {
		return nil, ErrReportNotFound
	}

	data, err := w.redis.Do(ctx, w.redis.B().Get().Key(reportKey(date)).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load metrics report: %w", err)
	}

	if err := sonic.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode metrics report: %w", err)
	}
	return &report, nil
}

// save records the report in the metrics log, dropping reports older than
// the retention window, and mirrors it to Redis when a client is configured.
func (w *Worker) save(ctx context.Context, report *types.MetricsReport) error {
	err := w.store.WithLock(func(c *store.Collections) error {
		if err := c.MetricsLog.Upsert(ctx, reportID(report.Date), *report); err != nil {
			return err
		}

		reports, err := c.MetricsLog.GetAll(ctx)
		if err != nil {
			return err
		}

		cutoff := report.Date.Add(-reportTTL)
		for id, stored := range reports.All() {
			if stored.Date.Before(cutoff) {
				if _, err := c.MetricsLog.Remove(ctx, id); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store metrics report: %w", err)
	}

	if w.redis == nil {
		return nil
	}

	data, err := sonic.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode metrics report: %w", err)
	}

	err = w.redis.Do(ctx, w.redis.B().Set().Key(reportKey(report.Date)).Value(string(data)).Ex(reportTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to mirror metrics report: %w", err)
	}
	return nil
}

func (w *Worker) step(message string, percent int64) {
	if w.bar != nil {
		w.bar.SetStepMessage(message, percent)
	}
	if w.reporter != nil {
		w.reporter.UpdateStatus(message, int(percent))
	}
}

// reportID returns the metrics log key of the given day, as YYYYMMDD.
func reportID(date time.Time) uint64 {
	y, m, d := date.Date()
	return uint64(y)*10000 + uint64(m)*100 + uint64(d)
}

// reportKey returns the Redis key of the report for the given day.
func reportKey(date time.Time) string {
	return reportKeyPrefix + date.Format(time.DateOnly)
}
