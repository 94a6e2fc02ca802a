// Package migrations embeds database migration files for use by services.
package migrations

import "embed"

// FS contains the NNNN_name.{up,down}.sql files applied by the migrator.
//
//go:embed *.sql
var FS embed.FS
