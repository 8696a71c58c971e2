package main

import (
	"context"

	"menu-service/db"
	"menu-service/migrations"
)

// applyMigrations runs the schema embedded in the binary, so `menu-service migrate`
// works regardless of the current working directory.
func applyMigrations(ctx context.Context, d db.DB, applied func(name string)) error {
	return db.Migrate(ctx, d, migrations.FS, applied)
}
