// Package db embeds the SQL migrations so production builds carry the
// schema with them.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
