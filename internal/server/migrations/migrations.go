// Package migrations embeds the goose schema files for each supported
// database dialect.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the migrations rooted at the postgres directory.
func Postgres() fs.FS { return sub("postgres") }

// SQLite returns the migrations rooted at the sqlite directory.
func SQLite() fs.FS { return sub("sqlite") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return f
}
