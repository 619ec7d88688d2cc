package migrations

import "embed"

// LogFS holds the replication log schema.
//
//go:embed log/*.sql
var LogFS embed.FS
