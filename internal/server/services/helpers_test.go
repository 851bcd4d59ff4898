package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/voxbot/internal/clock"
	"github.com/dmitrijs2005/voxbot/internal/dbx"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/repomanager"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// --- helpers ---

func newTestDeps(t *testing.T) (Deps, *clock.FakeClock) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	clk := clock.NewFakeClock(testNow)
	return Deps{DB: db, Repos: rm, Clock: clk}, clk
}

// seedAccount creates userID with credits and an optional window that ends
// at expireAt.
func seedAccount(t *testing.T, d Deps, userID, credits int64, expireAt *time.Time) {
	t.Helper()
	ctx := context.Background()
	repo := d.Repos.Accounts(d.DB)
	_, err := repo.Upsert(ctx, userID, "")
	require.NoError(t, err)
	if credits != 0 {
		_, err = repo.AddCredits(ctx, userID, credits)
		require.NoError(t, err)
	}
	if expireAt != nil {
		require.NoError(t, repo.SetValidity(ctx, userID, *expireAt))
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

// --- fakes ---

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
	fail map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: map[int64][]string{}, fail: map[int64]bool{}}
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[userID] {
		return errors.New("blocked by user")
	}
	n.sent[userID] = append(n.sent[userID], text)
	return nil
}

func (n *fakeNotifier) messages(userID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[userID]
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
	failDel map[string]bool
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, failDel: map[string]bool{}}
}

func (b *fakeBlobs) Put(_ context.Context, key string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	b.objects[key] = data
	return key, nil
}

func (b *fakeBlobs) Delete(_ context.Context, locator string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDel[locator] {
		return errors.New("access denied")
	}
	delete(b.objects, locator)
	b.deleted = append(b.deleted, locator)
	return nil
}

// faultyRepos injects failures into the accounts repository for chosen
// users while delegating everything else to a real manager.
type faultyRepos struct {
	repomanager.RepositoryManager
	resetErr map[int64]error
	getPanic map[int64]bool
	listErr  error
}

func (f *faultyRepos) Accounts(db dbx.DBTX) accounts.Repository {
	return &faultyAccounts{Repository: f.RepositoryManager.Accounts(db), f: f}
}

type faultyAccounts struct {
	accounts.Repository
	f *faultyRepos
}

func (a *faultyAccounts) ResetExpired(ctx context.Context, userID int64) error {
	if err := a.f.resetErr[userID]; err != nil {
		return err
	}
	return a.Repository.ResetExpired(ctx, userID)
}

func (a *faultyAccounts) ListWithValidity(ctx context.Context, afterID int64, limit int) ([]*models.Account, error) {
	if a.f.listErr != nil {
		return nil, a.f.listErr
	}
	return a.Repository.ListWithValidity(ctx, afterID, limit)
}

func (a *faultyAccounts) Get(ctx context.Context, userID int64) (*models.Account, error) {
	if a.f.getPanic[userID] {
		panic("corrupt row")
	}
	return a.Repository.Get(ctx, userID)
}
