// Package migrations embeds the schema so `menu-service migrate` works regardless of
// the current working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
