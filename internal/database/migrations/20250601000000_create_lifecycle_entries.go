package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/followbot/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewCreateTable().
			Model((*types.LifecycleEntry)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create lifecycle_entries: %w", err)
		}

		_, err = db.NewCreateIndex().
			Model((*types.LifecycleEntry)(nil)).
			Index("idx_lifecycle_entries_order").
			Column("collection", "seq").
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create lifecycle_entries index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewDropTable().
			Model((*types.LifecycleEntry)(nil)).
			IfExists().
			Cascade().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop lifecycle_entries: %w", err)
		}
		return nil
	})
}
