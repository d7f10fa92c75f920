// Package migrations embeds the gameplay database schema for goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
