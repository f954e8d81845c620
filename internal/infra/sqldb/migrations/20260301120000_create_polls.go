package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"polls-service/internal/infra/sqldb"
)

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return sqldb.CreateSchema(ctx, db)
		},
		func(ctx context.Context, db *bun.DB) error {
			return sqldb.DropSchema(ctx, db)
		},
	)
}
