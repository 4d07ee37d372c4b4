package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// GenerationKey returns the key holding the generation of key.
func GenerationKey(key string) string {
	return "gen:" + key
}

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds ARGV[1].
// A missing generation reads as 0.
var setIfGeneration = redis.NewScript(`
local g = redis.call('GET', KEYS[2])
if not g then g = '0' end
if g ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisStore is a Store backed by Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the raw value or ErrMiss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

// Generation returns the generation of key.
func (s *RedisStore) Generation(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, GenerationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// SetIfGeneration stores value with ttl unless key was invalidated since gen was read.
func (s *RedisStore) SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error) {
	n, err := setIfGeneration.Run(ctx, s.client,
		[]string{key, GenerationKey(key)},
		strconv.FormatInt(gen, 10), value, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Invalidate deletes keys and bumps their generations in one transaction.
func (s *RedisStore) Invalidate(ctx context.Context, ttl time.Duration, keys ...string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, GenerationKey(k))
			pipe.Expire(ctx, GenerationKey(k), ttl)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}
