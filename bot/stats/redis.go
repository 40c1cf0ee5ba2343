package stats

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the record keys.
const DefaultRedisPrefix = "pdfbot:stats:"

// RedisBackend keeps each record under a plain string key without TTL.
type RedisBackend struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBackend wraps a redis client; an empty prefix selects DefaultRedisPrefix.
func NewRedisBackend(client redis.Cmdable, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// Name implements Backend.
func (b *RedisBackend) Name() string { return "redis" }

// Key returns the redis key used for loc.
func (b *RedisBackend) Key(loc Location) string {
	return b.prefix + recordName(loc)
}

// Read implements Backend.
func (b *RedisBackend) Read(ctx context.Context, loc Location) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.Key(loc)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Write implements Backend.
func (b *RedisBackend) Write(ctx context.Context, loc Location, data []byte) error {
	return b.client.Set(ctx, b.Key(loc), data, 0).Err()
}

// Delete implements Backend.
func (b *RedisBackend) Delete(ctx context.Context, loc Location) error {
	return b.client.Del(ctx, b.Key(loc)).Err()
}
