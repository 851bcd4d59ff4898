package repomanager

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/voxbot/internal/dbx"
	"github.com/dmitrijs2005/voxbot/internal/server/migrations"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/admins"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/artifacts"
)

type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Artifacts(db dbx.DBTX) artifacts.Repository {
	return artifacts.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Admins(db dbx.DBTX) admins.Repository {
	return admins.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, goose.DialectSQLite3, db, migrations.SQLite())
}

// migrateUp is a seam for tests that must not touch a real database.
var migrateUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}
