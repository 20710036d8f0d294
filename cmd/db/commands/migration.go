package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/postgres"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// MigrationCommands returns the commands that manage the lifecycle store schema.
func MigrationCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "init",
			Usage:  "Create the tables that track applied migrations",
			Action: initSchema(deps),
		},
		{
			Name:   "migrate",
			Usage:  "Create or upgrade the lifecycle_entries schema",
			Action: migrateSchema(deps),
		},
		{
			Name:  "rollback",
			Usage: "Roll back the last migration group, dropping the lifecycle data it created",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Confirm that stored lifecycle entries may be lost",
				},
			},
			Action: rollbackSchema(deps),
		},
		{
			Name:   "status",
			Usage:  "Show applied migrations and the number of stored entries per collection",
			Action: showSchemaStatus(deps),
		},
		{
			Name:      "create",
			Usage:     "Create a new Go migration file",
			ArgsUsage: "NAME",
			Action:    createMigration(deps),
		},
	}
}

func initSchema(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to create migration tables: %w", err)
		}

		deps.Logger.Info("Migration tables ready")
		return nil
	}
}

func migrateSchema(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Lock(ctx); err != nil {
			return err
		}
		defer deps.Migrator.Unlock(ctx) //nolint:errcheck // -

		group, err := deps.Migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate lifecycle store: %w", err)
		}

		if group.IsZero() {
			deps.Logger.Info("Lifecycle store schema is up to date")
			return nil
		}

		for _, m := range group.Migrations {
			deps.Logger.Info("Applied migration",
				zap.String("name", m.Name),
				zap.String("comment", m.Comment))
		}
		deps.Logger.Info("Lifecycle store migrated", zap.Int64("group", group.ID))
		return nil
	}
}

func rollbackSchema(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if !c.Bool("force") {
			return ErrForceRequired
		}

		if err := deps.Migrator.Lock(ctx); err != nil {
			return err
		}
		defer deps.Migrator.Unlock(ctx) //nolint:errcheck // -

		group, err := deps.Migrator.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("failed to roll back lifecycle store: %w", err)
		}

		if group.IsZero() {
			deps.Logger.Info("Nothing to roll back")
			return nil
		}

		deps.Logger.Warn("Rolled back migration group",
			zap.Int64("group", group.ID),
			zap.String("migrations", group.Migrations.String()))
		return nil
	}
}

func showSchemaStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		ms, err := deps.Migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}

		// Entries can only be counted once the table exists
		var counts map[string]int
		if len(ms.Unapplied()) == 0 {
			counts, err = countEntries(ctx, postgres.New(deps.DB))
			if err != nil {
				return err
			}
		}

		return writeStatus(os.Stdout, ms, counts)
	}
}

func createMigration(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}

		mf, err := deps.Migrator.CreateGoMigration(ctx, c.Args().First())
		if err != nil {
			return err
		}

		deps.Logger.Info("Created Go migration",
			zap.String("name", mf.Name),
			zap.String("path", mf.Path))
		return nil
	}
}

// countEntries returns the number of stored entries per collection.
func countEntries(ctx context.Context, backend store.Backend) (map[string]int, error) {
	counts := make(map[string]int, len(store.CollectionNames))
	for _, name := range store.CollectionNames {
		count, err := backend.Count(ctx, name)
		if err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, nil
}

// writeStatus prints the migrations followed by the collection sizes.
// A nil counts map means the schema is not fully applied.
func writeStatus(out io.Writer, ms migrate.MigrationSlice, counts map[string]int) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "MIGRATION\tCOMMENT\tGROUP\tAPPLIED")
	for _, m := range ms {
		applied := "pending"
		if m.GroupID > 0 {
			applied = m.MigratedAt.UTC().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.Name, m.Comment, m.GroupID, applied)
	}

	fmt.Fprintln(w)
	if counts == nil {
		fmt.Fprintln(w, "Collections are unavailable until `db migrate` has run")
		return w.Flush()
	}

	fmt.Fprintln(w, "COLLECTION\tENTRIES")
	for _, name := range store.CollectionNames {
		fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
	return w.Flush()
}
