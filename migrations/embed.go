// Package migrations holds the directory schema DDL, applied in file name order.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
