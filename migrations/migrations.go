// Package migrations embeds the SQL schema migrations applied at
// startup when running against Postgres.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
