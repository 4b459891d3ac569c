// Package migrations embeds the SQL migrations of the run history store.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql
var embedded embed.FS

// Postgres returns the PostgreSQL migrations rooted at their directory.
func Postgres() fs.FS {
	sub, err := fs.Sub(embedded, "postgres")
	if err != nil {
		panic(err)
	}
	return sub
}
