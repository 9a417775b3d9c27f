package migrations

import "embed"

// FS содержит SQL миграции, golang-migrate читает их через iofs
//
//go:embed *.sql
var FS embed.FS
