// Package migrations embeds the SQL schema for the switch history so the
// binary can migrate its database without the files on disk.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS
