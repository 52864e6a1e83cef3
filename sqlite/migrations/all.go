package migrations

import "embed"

// AllUp holds every schema migration, applied in file name order.
//
//go:embed *.sql
var AllUp embed.FS
