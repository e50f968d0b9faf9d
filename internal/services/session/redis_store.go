package session

import (
	"context"
	"time"

	"github.com/blueskybroadcast/teams-api/internal/infrastructure/redis"
)

// RedisStore persists session records in Redis. Namespace flush is supported
// via SCAN-based pattern deletion.
type RedisStore struct {
	service *redis.Service
	prefix  string
}

func NewRedisStore(service *redis.Service, prefix string) *RedisStore {
	return &RedisStore{
		service: service,
		prefix:  prefix,
	}
}

func (rs *RedisStore) Persist(ctx context.Context, key, value string, ttl time.Duration) error {
	return rs.service.Set(ctx, rs.prefix+key, value, ttl)
}

func (rs *RedisStore) Fetch(ctx context.Context, key string) (string, bool, error) {
	val, err := rs.service.Get(ctx, rs.prefix+key)
	if err != nil {
		if redis.IsNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (rs *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	return rs.service.Exists(ctx, rs.prefix+key)
}

func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	return rs.service.Delete(ctx, rs.prefix+key)
}

func (rs *RedisStore) DeleteNamespace(ctx context.Context, namespace string) error {
	return rs.service.DeleteByPattern(ctx, rs.prefix+namespace+"_*")
}

func (rs *RedisStore) Clear(ctx context.Context) error {
	return rs.service.DeleteByPattern(ctx, rs.prefix+"*")
}
