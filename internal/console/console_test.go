package console

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/logging"
	"github.com/dmitrijs2005/voxbot/internal/server/blobstore"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/repomanager"
)

type fixture struct {
	c     *Console
	out   *bytes.Buffer
	db    *sql.DB
	repos repomanager.RepositoryManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	blobs, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &fixture{
		c:     newConsole(db, rm, blobs, nil, logging.Nop(), out),
		out:   out,
		db:    db,
		repos: rm,
	}
}

func (f *fixture) seed(t *testing.T, id int64, username string) {
	t.Helper()
	_, err := f.repos.Accounts(f.db).Upsert(context.Background(), id, username)
	require.NoError(t, err)
}

func TestConsole_CreditsAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "alice")
	f.seed(t, 2, "bob")

	require.NoError(t, f.c.AddCredits(ctx, 1, 10))
	assert.Contains(t, f.out.String(), "Added 10 credits to 1, balance 10")

	require.NoError(t, f.c.RemoveCredits(ctx, 1, 4))
	assert.Contains(t, f.out.String(), "balance 6")

	f.out.Reset()
	require.NoError(t, f.c.Users(ctx))
	out := f.out.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "2 accounts")
}

func TestConsole_RejectsBadAmounts(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "alice")

	err := f.c.AddCredits(context.Background(), 1, 0)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	err = f.c.AddCredits(context.Background(), 99, 5)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestConsole_ValidityAndPremium(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "alice")
	f.seed(t, 2, "bob")

	require.NoError(t, f.c.SetValidity(ctx, 1, 30))
	assert.Contains(t, f.out.String(), "Validity for 1 until")

	f.out.Reset()
	require.NoError(t, f.c.Premium(ctx))
	assert.Contains(t, f.out.String(), "1 accounts")

	require.NoError(t, f.c.RemoveValidity(ctx, 1))
	f.out.Reset()
	require.NoError(t, f.c.Premium(ctx))
	assert.Contains(t, f.out.String(), "0 accounts")
}

func TestConsole_AddAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.c.AddAdmin(ctx, 77))
	ok, err := f.repos.Admins(f.db).IsAdmin(ctx, 77)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsole_SweepRevokesExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "alice")
	repo := f.repos.Accounts(f.db)
	_, err := repo.AddCredits(ctx, 1, 5)
	require.NoError(t, err)
	require.NoError(t, repo.SetValidity(ctx, 1, time.Now().Add(-time.Hour)))

	require.NoError(t, f.c.Sweep(ctx))
	assert.Contains(t, f.out.String(), "Scanned 1, expired 1, failed 0")

	a, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, a.Credits)
	assert.Nil(t, a.ValidityExpireAt)
}
