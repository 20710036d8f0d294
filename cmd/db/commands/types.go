package commands

import (
	"errors"

	"github.com/robalyx/followbot/internal/database"
	"github.com/robalyx/followbot/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var (
	ErrNameRequired   = errors.New("NAME argument required")
	ErrSourceRequired = errors.New("one of --data-dir or --sqlite-path is required")
	ErrForceRequired  = errors.New("rollback drops lifecycle data, pass --force to confirm")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	Config   *config.Config
	DB       database.Client
	Migrator *migrate.Migrator
	Logger   *zap.Logger
}
