package setup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/redis/rueidis"
	"github.com/robalyx/followbot/internal/api/github"
	"github.com/robalyx/followbot/internal/database"
	"github.com/robalyx/followbot/internal/database/migrations"
	"github.com/robalyx/followbot/internal/notify"
	"github.com/robalyx/followbot/internal/redis"
	"github.com/robalyx/followbot/internal/setup/config"
	"github.com/robalyx/followbot/internal/setup/telemetry"
	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/file"
	"github.com/robalyx/followbot/internal/store/lock"
	"github.com/robalyx/followbot/internal/store/memory"
	"github.com/robalyx/followbot/internal/store/postgres"
	redisstore "github.com/robalyx/followbot/internal/store/redis"
	"github.com/robalyx/followbot/internal/store/sqlite"
	"github.com/robalyx/followbot/internal/worker/core"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var (
	ErrUnknownBackend       = errors.New("unknown storage backend")
	ErrRedisDisabled        = errors.New("redis backend requires redis to be enabled")
	ErrMigrationsIncomplete = errors.New("database migrations are pending")
	ErrWorkerRunning        = errors.New("a worker is running against this store, stop it first")
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config        *config.Config     // Application configuration
	ConfigDir     string             // Directory the configuration was loaded from
	Logger        *zap.Logger        // Main application logger
	DBLogger      *zap.Logger        // Database-specific logger
	Store         *store.Store       // Lifecycle collections
	Lifecycle     *config.Reloader   // Lifecycle limits reloaded per cycle
	API           *github.Client     // GitHub API client
	Notifier      notify.Notifier    // Notification channel
	RedisManager  *redis.Manager     // Redis connection manager
	StatusClient  rueidis.Client     // Redis client for worker status reporting, nil when disabled
	MetricsClient rueidis.Client     // Redis client for metric reports, nil when disabled
	LogManager    *telemetry.Manager // Log management system
	db            database.Client    // Postgres connection, set for the postgres backend
	discord       *notify.Discord    // Webhook client, set when notifications are enabled
	storeLock     *lock.File         // Lock file, set once LockStore succeeds on a local backend
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string, console bool) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug, console)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:       cfg,
		ConfigDir:    configDir,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		Lifecycle:    config.NewReloader(configDir, cfg.Worker.Lifecycle),
		Notifier:     notify.Nop{},
		RedisManager: redis.NewManager(&cfg.Common.Redis, logger),
		LogManager:   logManager,
	}

	if err := app.initialize(ctx); err != nil {
		app.Cleanup(ctx)
		return nil, err
	}

	return app, nil
}

// initialize connects the store, redis clients, API client and notifier.
func (s *App) initialize(ctx context.Context) error {
	cfg := s.Config

	// Redis clients for worker status reporting and metric reports
	if cfg.Common.Redis.Enabled {
		statusClient, err := s.RedisManager.GetClient(redis.WorkerStatusDBIndex)
		if err != nil {
			return err
		}

		metricsClient, err := s.RedisManager.GetClient(redis.MetricsDBIndex)
		if err != nil {
			return err
		}

		s.StatusClient = statusClient
		s.MetricsClient = metricsClient
	}

	backend, err := s.openBackend(ctx)
	if err != nil {
		return err
	}
	s.Store = store.New(backend)

	s.Logger.Info("Opened lifecycle store", zap.String("backend", cfg.Common.Storage.Backend))

	// GitHub client is rate limited by the configured request budget
	api, err := github.New(&cfg.Common.GitHub, s.Logger)
	if err != nil {
		return err
	}
	s.API = api

	if cfg.Common.Discord.Enabled {
		discord, err := notify.NewDiscord(cfg.Common.Discord.WebhookURL, s.Logger)
		if err != nil {
			return err
		}

		s.discord = discord
		s.Notifier = discord
	}

	return nil
}

// openBackend creates the configured storage backend.
func (s *App) openBackend(ctx context.Context) (store.Backend, error) {
	storage := s.Config.Common.Storage

	switch storage.Backend {
	case config.BackendSQLite:
		return sqlite.New(storage.SQLitePath)
	case config.BackendFile:
		return file.New(storage.DataDir)
	case config.BackendMemory:
		s.Logger.Warn("Using in-memory storage, lifecycle state will not survive a restart")
		return memory.New(), nil
	case config.BackendRedis:
		if !s.Config.Common.Redis.Enabled {
			return nil, ErrRedisDisabled
		}

		client, err := s.RedisManager.GetClient(redis.StoreDBIndex)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client, storage.RedisPrefix), nil
	case config.BackendPostgres:
		db, err := checkAndRunMigrations(ctx, &s.Config.Common.PostgreSQL, s.DBLogger)
		if err != nil {
			return nil, err
		}

		s.db = db
		return postgres.New(db), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, storage.Backend)
	}
}

// LockStore claims a file or sqlite store for this process until Cleanup.
// It fails with lock.ErrHeld while another process holds the store.
// Remote backends are not locked here; see EnsureNoLiveWorker.
func (s *App) LockStore() error {
	path := storeLockPath(s.Config.Common.Storage)
	if path == "" || s.storeLock != nil {
		return nil
	}

	l, err := lock.Acquire(path)
	if err != nil {
		return err
	}

	s.storeLock = l
	s.Logger.Debug("Locked lifecycle store", zap.String("path", path))
	return nil
}

// EnsureNoLiveWorker fails with ErrWorkerRunning when a worker of the given
// type reported a heartbeat within the stale threshold. Without Redis no
// heartbeats exist and the check passes.
func (s *App) EnsureNoLiveWorker(ctx context.Context, workerType string, now time.Time) error {
	if s.StatusClient == nil {
		return nil
	}

	live, err := core.NewMonitor(s.StatusClient, s.Logger).LiveWorkers(ctx, workerType, now)
	if err != nil {
		return err
	}
	if len(live) > 0 {
		return fmt.Errorf("%w: %s worker %s was seen %s ago",
			ErrWorkerRunning, workerType, live[0].WorkerID, now.Sub(live[0].LastSeen).Truncate(time.Second))
	}
	return nil
}

// storeLockPath returns the lock file of a local backend, or "" for backends
// shared over the network.
func storeLockPath(storage config.Storage) string {
	switch storage.Backend {
	case config.BackendSQLite:
		return storage.SQLitePath + ".lock"
	case config.BackendFile:
		return filepath.Join(storage.DataDir, "followbot.lock")
	default:
		return ""
	}
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	if s.discord != nil {
		s.discord.Close(ctx)
	}

	// Closing the store also closes a postgres connection owned by its backend
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			log.Printf("Failed to close store: %v", err)
		}
	} else if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}

	if err := s.storeLock.Release(); err != nil {
		log.Printf("Failed to release store lock: %v", err)
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	unapplied := ms.Unapplied()
	if len(unapplied) == 0 {
		return tempDB, nil
	}

	log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

	var response string

	_, _ = fmt.Scanln(&response)

	tempDB.Close()

	if response != "y" && response != "Y" {
		return nil, fmt.Errorf("%w: run `db migrate` first", ErrMigrationsIncomplete)
	}

	return database.NewConnection(ctx, cfg, dbLogger, true)
}
