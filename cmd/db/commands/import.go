package commands

import (
	"context"

	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/file"
	"github.com/robalyx/followbot/internal/store/postgres"
	"github.com/robalyx/followbot/internal/store/sqlite"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// ImportCommands returns the commands that move lifecycle data into the database.
func ImportCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "import",
			Usage: "Replace the lifecycle collections with the contents of a file or sqlite store",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "data-dir",
					Usage: "Directory of a file store",
				},
				&cli.StringFlag{
					Name:  "sqlite-path",
					Usage: "Path of a sqlite store",
				},
			},
			Action: handleImport(deps),
		},
	}
}

// handleImport handles the 'import' command.
func handleImport(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		var (
			src store.Backend
			err error
		)

		switch {
		case c.String("data-dir") != "":
			src, err = file.New(c.String("data-dir"))
		case c.String("sqlite-path") != "":
			src, err = sqlite.New(c.String("sqlite-path"))
		default:
			return ErrSourceRequired
		}
		if err != nil {
			return err
		}
		defer src.Close()

		// The database connection is owned by the command, not the backend
		dst := postgres.New(deps.DB)

		copied, err := store.Copy(ctx, dst, src)
		if err != nil {
			return err
		}

		for _, name := range store.CollectionNames {
			deps.Logger.Info("Imported collection",
				zap.String("collection", name),
				zap.Int("entries", copied[name]),
			)
		}

		return nil
	}
}
