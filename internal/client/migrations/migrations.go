// Package migrations embeds the goose SQL migrations for the local store.
//
// The schema is versioned so an engine built against a newer schema can open
// an older on-disk database and migrate it forward without losing queued or
// conflicted items.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
