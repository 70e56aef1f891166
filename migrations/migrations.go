// Package migrations embeds the SQL schema so the binary can apply it without
// a checkout on disk.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
