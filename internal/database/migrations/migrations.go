// Package migrations embeds the SQL files describing the database schema.
package migrations

import "embed"

// FS holds the migration files, named as expected by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
