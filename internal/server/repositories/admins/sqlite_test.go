package admins

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/voxbot/internal/server/migrations"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.SQLite())
	require.NoError(t, err)
	_, err = p.Up(context.Background())
	require.NoError(t, err)
	return db
}

func TestSQLite_AddIsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, 9))
	require.NoError(t, r.Add(ctx, 9))
	require.NoError(t, r.Add(ctx, 3))

	ids, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, ids)

	ok, err := r.IsAdmin(ctx, 9)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsAdmin(ctx, 4)
	require.NoError(t, err)
	assert.False(t, ok)
}
