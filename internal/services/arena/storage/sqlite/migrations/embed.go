// Package migrations contains embedded SQL migrations for the arena archive.
package migrations

import "embed"

//go:embed events/*.sql
var EventsFS embed.FS
