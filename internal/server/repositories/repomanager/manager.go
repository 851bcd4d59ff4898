package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/voxbot/internal/dbx"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/admins"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/artifacts"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Artifacts(db dbx.DBTX) artifacts.Repository
	Admins(db dbx.DBTX) admins.Repository
}

// New returns the manager for a config driver name ("sqlite" or "postgres").
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteRepositoryManager(), nil
	case "postgres":
		return NewPostgresRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// Open connects to the database for driver, checks it answers and applies
// pending migrations.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	m, err := New(driver)
	if err != nil {
		return nil, nil, err
	}

	sqlDriver := "pgx"
	if driver == "sqlite" {
		sqlDriver = "sqlite"
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer at a time; avoids SQLITE_BUSY between pooled conns
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate %s: %w", driver, err)
	}

	return db, m, nil
}
