// Package migrations embeds the device's SQLite schema migrations applied by goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
