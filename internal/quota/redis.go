package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"canaro-bot/internal/types"
)

const (
	quotaKeyPattern = "quota:%v:user:%v"
	// A record only matters for its own day; two days covers any timezone skew.
	quotaExpiration = 48 * time.Hour
)

type redisCmdable interface {
	Get(key string) *redis.StringCmd
	Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore shares quota records between bot replicas.
type RedisStore struct {
	client redisCmdable
}

func NewRedisStore(address string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: address})}
}

func redisKey(key Key) string {
	return fmt.Sprintf(quotaKeyPattern, key.ChatID, key.UserID)
}

func (s *RedisStore) Get(_ context.Context, key Key) (types.DailyQuota, bool, error) {
	raw, err := s.client.Get(redisKey(key)).Result()
	if err == redis.Nil {
		return types.DailyQuota{}, false, nil
	}
	if err != nil {
		return types.DailyQuota{}, false, errors.Wrap(err, "redis get")
	}

	var q types.DailyQuota
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return types.DailyQuota{}, false, errors.Wrapf(err, "decode quota %s", redisKey(key))
	}
	return q, true, nil
}

func (s *RedisStore) Set(_ context.Context, q types.DailyQuota) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return errors.Wrap(err, "encode quota")
	}
	key := redisKey(Key{ChatID: q.ChatID, UserID: q.UserID})
	if err := s.client.Set(key, payload, quotaExpiration).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}
