package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

const keyPrefix = "voxbot:pending:"

// RedisStore keeps pending actions in Redis so they survive restarts and
// are shared between replicas.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(adminID int64) string {
	return keyPrefix + strconv.FormatInt(adminID, 10)
}

func (s *RedisStore) Put(ctx context.Context, adminID int64, action models.PendingAction) error {
	b, err := msgpack.Marshal(&action)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key(adminID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, adminID int64) (models.PendingAction, bool, error) {
	b, err := s.rdb.GetDel(ctx, key(adminID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PendingAction{}, false, nil
	}
	if err != nil {
		return models.PendingAction{}, false, fmt.Errorf("redis getdel: %w", err)
	}

	var action models.PendingAction
	if err := msgpack.Unmarshal(b, &action); err != nil {
		return models.PendingAction{}, false, fmt.Errorf("decode pending action: %w", err)
	}
	return action, true, nil
}

func (s *RedisStore) Has(ctx context.Context, adminID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, key(adminID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Clear(ctx context.Context, adminID int64) error {
	if err := s.rdb.Del(ctx, key(adminID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
