package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

func TestRedisStore_PutTake(t *testing.T) {
	s, mr := newRedisStore(t, 10*time.Minute)
	ctx := context.Background()
	want := models.PendingAction{Kind: models.ActionSetValidity, Target: 7}

	require.NoError(t, s.Put(ctx, 1, want))
	assert.True(t, mr.Exists("voxbot:pending:1"))
	assert.Equal(t, 10*time.Minute, mr.TTL("voxbot:pending:1"))

	has, err := s.Has(ctx, 1)
	require.NoError(t, err)
	assert.True(t, has)

	got, ok, err := s.Take(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = s.Take(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Expiry(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, 1, models.PendingAction{Kind: models.ActionBroadcast}))
	mr.FastForward(time.Minute + time.Second)

	has, err := s.Has(ctx, 1)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRedisStore_Clear(t *testing.T) {
	s, _ := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, 1, models.PendingAction{Kind: "x"}))
	require.NoError(t, s.Clear(ctx, 1))
	_, ok, err := s.Take(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_GarbageValue(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	require.NoError(t, mr.Set("voxbot:pending:1", "\xc1"))

	_, _, err := s.Take(context.Background(), 1)
	assert.Error(t, err)
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	mr.Close()

	_, err := s.Has(context.Background(), 1)
	assert.Error(t, err)
}
