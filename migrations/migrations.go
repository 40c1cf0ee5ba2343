// Package migrations embeds the SQL schema of the Postgres statistics backend.
package migrations

import "embed"

// FS holds the numbered golang-migrate files (NNNNNN_name.up.sql / .down.sql).
//
//go:embed *.sql
var FS embed.FS
