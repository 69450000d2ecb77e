// Package migrations holds the Postgres schema migrations.
package migrations

import "embed"

// FS contains the *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
