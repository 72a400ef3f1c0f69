// Package migrations embeds the goose schema migrations for the gallery
// database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
