// Package migrations embeds the goose SQL migrations that own the
// contactbook database schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
