package migrations

import "embed"

// FS holds the ordered *.sql schema migrations
//
//go:embed *.sql
var FS embed.FS
