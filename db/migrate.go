package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
)

// Migrate executes every *.sql file of fsys in lexical order. Files must be idempotent
// (CREATE ... IF NOT EXISTS); there is no applied-version table.
func Migrate(ctx context.Context, d DB, fsys fs.FS, applied func(name string)) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		sqlBytes, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := d.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if applied != nil {
			applied(name)
		}
	}
	return nil
}
