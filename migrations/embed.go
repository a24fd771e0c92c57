// Package migrations embeds the SQL migrations so the server and the
// integration tests can run them through goose without a path on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
