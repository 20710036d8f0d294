package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/followbot/internal/pacing"
	"github.com/robalyx/followbot/internal/progress"
	"github.com/robalyx/followbot/internal/setup"
	"github.com/robalyx/followbot/internal/setup/telemetry"
	"github.com/robalyx/followbot/internal/store/types"
	"github.com/robalyx/followbot/internal/store/types/enum"
	"github.com/robalyx/followbot/internal/worker/core"
	"github.com/robalyx/followbot/internal/worker/cycle"
	"github.com/robalyx/followbot/internal/worker/stats"
	"github.com/robalyx/followbot/pkg/utils"
	"github.com/sourcegraph/conc"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// CycleWorker runs the follow cycle.
	CycleWorker = "cycle"

	// StatsWorker publishes the daily metrics.
	StatsWorker = "stats"
)

var (
	ErrUserIDRequired  = errors.New("USER_ID argument required")
	ErrInvalidUserID   = errors.New("invalid USER_ID")
	ErrRedisNotEnabled = errors.New("redis is not enabled in common.toml")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Run the followbot worker",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Start the follow cycle and statistics workers",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-stats",
						Usage: "Do not start the statistics worker",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runWorkers(ctx, !c.Bool("no-stats"))
				},
			},
			{
				Name:   "status",
				Usage:  "Show the status of running workers",
				Action: showStatus,
			},
			{
				Name:  "metrics",
				Usage: "Show lifecycle metrics",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "date",
						Usage: "Show the stored report of a day (YYYY-MM-DD) instead of live metrics",
					},
				},
				Action: showMetrics,
			},
			{
				Name:      "enqueue-unfollow",
				Usage:     "Queue a user for unfollowing",
				ArgsUsage: "USER_ID [LOGIN]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "reason",
						Value: enum.UnfollowReasonManual.String(),
						Usage: "Unfollow reason (" + strings.Join(enum.UnfollowReasonStrings(), ", ") + ")",
					},
				},
				Action: enqueueUnfollow,
			},
			{
				Name:   "reconcile",
				Usage:  "Repair users tracked by the wrong collections",
				Action: reconcile,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, os.Args)
}

// runWorkers starts the cycle worker and, optionally, the statistics worker.
func runWorkers(ctx context.Context, withStats bool) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir, false)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.WithoutCancel(ctx))

	if err := app.LockStore(); err != nil {
		return err
	}

	if delay := app.Config.Worker.StartupDelay; delay > 0 {
		app.Logger.Info("Waiting before start", zap.Int("delayMs", delay))
		if utils.ContextSleep(ctx, time.Duration(delay)*time.Millisecond) == utils.SleepCancelled {
			return nil
		}
	}

	// Initialize progress bars
	cycleBar := progress.NewBar(100, 25, "Cycle")
	bars := []*progress.Bar{cycleBar}

	cycleLogger := app.LogManager.GetWorkerLogger(CycleWorker + "_worker")
	pacer := pacing.New(
		rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // scheduling only
		cycleLogger,
		pacing.WithBar(cycleBar),
	)
	cycleWorker := cycle.New(app.Store, app.API, app.Notifier, app.Lifecycle, pacer, cycleLogger,
		cycle.WithBar(cycleBar),
		cycle.WithReporter(core.NewStatusReporter(app.StatusClient, CycleWorker, cycleLogger)),
	)

	var statsWorker *stats.Worker
	var statsLogger *zap.Logger
	if withStats {
		statsBar := progress.NewBar(100, 25, "Stats")
		bars = append(bars, statsBar)

		statsLogger = app.LogManager.GetWorkerLogger(StatsWorker + "_worker")
		statsWorker = stats.New(app.Store, app.MetricsClient, app.Notifier, statsLogger,
			stats.WithBar(statsBar),
			stats.WithReporter(core.NewStatusReporter(app.StatusClient, StatsWorker, statsLogger)),
		)
	}

	// Create and start the renderer
	renderCtx, stopRender := context.WithCancel(ctx)
	renderer := progress.NewRenderer(bars, os.Stdout)
	go renderer.Render(renderCtx)

	var wg conc.WaitGroup
	wg.Go(func() { runWorker(ctx, cycleWorker, cycleLogger) })
	if statsWorker != nil {
		wg.Go(func() { runWorker(ctx, statsWorker, statsLogger) })
	}

	log.Printf("Started %d workers", len(bars))
	wg.Wait()
	stopRender()
	log.Println("All workers have finished. Exiting.")

	return nil
}

// runWorker runs a single worker in a loop with error recovery.
func runWorker(ctx context.Context, w interface{ Start(ctx context.Context) }, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping worker")
			return
		default:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("Worker execution failed",
							zap.String("worker_type", fmt.Sprintf("%T", w)),
							zap.Any("panic", r),
						)
						logger.Info("Restarting worker in 5 seconds...")
					}
				}()

				logger.Info("Starting worker")
				w.Start(ctx)
			}()

			if ctx.Err() != nil {
				continue
			}

			logger.Warn("Worker stopped unexpectedly",
				zap.String("worker_type", fmt.Sprintf("%T", w)),
			)
			if !utils.ErrorSleep(ctx, 5*time.Second, logger, "worker") {
				return
			}
		}
	}
}

// showStatus prints the heartbeat of every worker.
func showStatus(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceCLI, WorkerLogDir, true)
	if err != nil {
		return err
	}
	defer app.Cleanup(ctx)

	if app.StatusClient == nil {
		return ErrRedisNotEnabled
	}

	statuses, err := core.NewMonitor(app.StatusClient, app.Logger).GetAllStatuses(ctx)
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Println("No workers are reporting")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tID\tTASK\tPROGRESS\tHEALTHY\tLAST SEEN")

	for _, status := range statuses {
		lastSeen := now.Sub(status.LastSeen).Truncate(time.Second).String() + " ago"
		if status.IsStale(now) {
			lastSeen += " (offline)"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%t\t%s\n",
			status.WorkerType, status.WorkerID, status.CurrentTask, status.Progress, status.IsHealthy, lastSeen)
	}

	return w.Flush()
}

// showMetrics prints the live metrics or a stored daily report.
func showMetrics(ctx context.Context, c *cli.Command) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceCLI, WorkerLogDir, true)
	if err != nil {
		return err
	}
	defer app.Cleanup(ctx)

	worker := stats.New(app.Store, app.MetricsClient, app.Notifier, app.Logger)

	var report *types.MetricsReport
	if date := c.String("date"); date != "" {
		day, err := time.ParseInLocation(time.DateOnly, date, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", date, err)
		}

		report, err = worker.Load(ctx, day)
		if err != nil {
			return err
		}
	} else {
		report, err = worker.Collect(ctx)
		if err != nil {
			return err
		}
	}

	data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))
	return nil
}

// enqueueUnfollow queues a user for unfollowing on the next cycle.
func enqueueUnfollow(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() < 1 {
		return ErrUserIDRequired
	}

	id, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidUserID, c.Args().Get(0))
	}

	reason, err := enum.UnfollowReasonString(c.String("reason"))
	if err != nil {
		return err
	}

	app, err := setup.InitializeApp(ctx, telemetry.ServiceCLI, WorkerLogDir, true)
	if err != nil {
		return err
	}
	defer app.Cleanup(ctx)

	if err := claimStore(ctx, app); err != nil {
		return err
	}

	user := types.User{ID: id, Login: c.Args().Get(1)}
	if err := newCycleWorker(app).EnqueueUnfollow(ctx, user, reason); err != nil {
		return err
	}

	app.Logger.Info("Queued user for unfollowing",
		zap.Uint64("userID", id),
		zap.String("reason", reason.String()))
	return nil
}

// reconcile repairs users tracked by the wrong collections.
func reconcile(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceCLI, WorkerLogDir, true)
	if err != nil {
		return err
	}
	defer app.Cleanup(ctx)

	if err := claimStore(ctx, app); err != nil {
		return err
	}

	result, err := newCycleWorker(app).ReconcileWithResult(ctx)
	if err != nil {
		return err
	}

	app.Logger.Info("Reconciled collections",
		zap.Int("pendingRestored", result.PendingRestored),
		zap.Int("ledgerRestored", result.LedgerRestored),
		zap.Int("followQueueRemoved", result.FollowQueueRemoved),
		zap.Int("pendingRemoved", result.PendingRemoved))
	return nil
}

// claimStore makes sure no cycle worker writes to the store while a
// maintenance command runs.
func claimStore(ctx context.Context, app *setup.App) error {
	if err := app.LockStore(); err != nil {
		return err
	}
	return app.EnsureNoLiveWorker(ctx, CycleWorker, time.Now())
}

// newCycleWorker creates a cycle worker for one-shot maintenance commands.
func newCycleWorker(app *setup.App) *cycle.Worker {
	pacer := pacing.New(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), app.Logger) //nolint:gosec // scheduling only
	return cycle.New(app.Store, app.API, app.Notifier, app.Lifecycle, pacer, app.Logger)
}
