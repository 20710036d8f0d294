package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrConfigInvalid         = errors.New("config file is invalid")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.0.0"

// EnvPrefix marks environment variables that override config values.
// FOLLOWBOT_COMMON__GITHUB__TOKEN sets common.github.token.
const EnvPrefix = "FOLLOWBOT_"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentWorkerVersion = 1
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig `koanf:"common"`
	Worker WorkerConfig `koanf:"worker"`
}

// CommonConfig contains configuration shared by every command.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Storage    Storage    `koanf:"storage"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	GitHub     GitHub     `koanf:"github"`
	Discord    Discord    `koanf:"discord"`
}

// WorkerConfig contains worker specific configuration.
type WorkerConfig struct {
	// Version of the worker config.
	Version int `koanf:"version"`
	// Startup delay in milliseconds.
	StartupDelay int `koanf:"startup_delay" validate:"gte=0,lte=3600000"`
	// Lifecycle limits, reloaded at every cycle boundary.
	Lifecycle Lifecycle `koanf:"lifecycle"`
}

// Lifecycle holds the tunables of the follow cycle.
type Lifecycle struct {
	// Login of the operating account.
	Account string `koanf:"account" validate:"required"`
	// Accounts whose followers seed the follow queue when it is empty.
	SeedAccounts []string `koanf:"seed_accounts"`
	// Maximum entries allowed in the follow queue.
	MaxQueueSize int `koanf:"max_queue_size" validate:"gte=0"`
	// Following stops once the account follows this many users.
	MaxTotalFollowing int `koanf:"max_total_following" validate:"gte=0"`
	// Bounds of follow actions per cycle.
	MinCycleFollowCount int `koanf:"min_cycle_follow_count" validate:"gte=0,lte=1000"`
	MaxCycleFollowCount int `koanf:"max_cycle_follow_count" validate:"gte=0,lte=1000"`
	// Bounds of unfollow actions per cycle.
	MinCycleUnfollowCount int `koanf:"min_cycle_unfollow_count" validate:"gte=0,lte=1000"`
	MaxCycleUnfollowCount int `koanf:"max_cycle_unfollow_count" validate:"gte=0,lte=1000"`
	// Days a followed user has to follow back, at most ten years.
	PendingFollowBackWaitTimeDays int `koanf:"pending_follow_back_wait_time_days" validate:"gte=0,lte=3650"`
	// Bounds of the delay between actions in seconds, at most a day.
	MinWaitTimeSeconds int `koanf:"min_wait_time_seconds" validate:"gte=0,lte=86400"`
	MaxWaitTimeSeconds int `koanf:"max_wait_time_seconds" validate:"gte=0,lte=86400"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep" validate:"gte=0"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines" validate:"gt=0"`
}

// Storage selects and configures the lifecycle store backend.
type Storage struct {
	// Backend name (sqlite, file, postgres, redis, memory).
	Backend string `koanf:"backend" validate:"oneof=sqlite file postgres redis memory"`
	// Directory used by the file backend.
	DataDir string `koanf:"data_dir" validate:"required_if=Backend file"`
	// Database path used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=Backend sqlite"`
	// Key prefix used by the redis backend.
	RedisPrefix string `koanf:"redis_prefix"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Enable worker heartbeats and metric reports.
	Enabled bool `koanf:"enabled"`
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// GitHub contains API client configuration.
type GitHub struct {
	// Personal access token.
	Token string `koanf:"token" validate:"required"`
	// API base URL for GitHub Enterprise (empty for github.com).
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout" validate:"gte=0"`
	// Sustained request rate.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	// Burst size of the request limiter.
	Burst int `koanf:"burst" validate:"gte=0"`
}

// Discord contains the notification webhook configuration.
type Discord struct {
	// Enable webhook notifications.
	Enabled bool `koanf:"enabled"`
	// Webhook URL.
	WebhookURL string `koanf:"webhook_url" validate:"required_if=Enabled true"`
}

// searchPaths lists the directories searched for config files.
func searchPaths() []string {
	paths := []string{".followbot"}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".followbot", "config"))
	}

	return append(paths,
		"/etc/followbot/config",
		"/app/config",
		"config",
		".",
	)
}

// LoadConfig searches the config paths and loads the configuration.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	for _, path := range searchPaths() {
		if _, err := os.Stat(filepath.Join(path, "common.toml")); err != nil {
			continue
		}

		cfg, err := LoadFrom(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	return nil, "", fmt.Errorf("%w: common.toml", ErrConfigFileNotFound)
}

// LoadFrom loads common.toml and worker.toml from dir, applies environment
// overrides and validates the result.
func LoadFrom(dir string) (*Config, error) {
	k := koanf.New(".")

	for _, name := range []string{"common", "worker"} {
		sub := koanf.New(".")
		if err := sub.Load(file.Provider(filepath.Join(dir, name+".toml")), toml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s.toml: %w", ErrConfigFileNotFound, name, err)
		}

		if err := k.MergeAt(sub, name); err != nil {
			return nil, fmt.Errorf("failed to merge %s.toml: %w", name, err)
		}
	}

	// Environment variables take precedence over files
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, err
	}

	if err := checkConfigVersion("worker", config.Worker.Version, CurrentWorkerVersion); err != nil {
		return nil, err
	}

	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return &config, nil
}

// envKey maps FOLLOWBOT_WORKER__LIFECYCLE__MAX_QUEUE_SIZE to
// worker.lifecycle.max_queue_size.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/followbot/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
