// Package migrations embeds the audit database schema into the binary.
package migrations

import "embed"

// FS holds every *.up.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
