package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// HSetFields writes all fields of a hash in a single HSET.
func HSetFields(ctx context.Context, client redis.Cmdable, key string, fields map[string]string) error {
	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}
	return client.HSet(ctx, key, values...).Err()
}

// HGetAll retrieves every field of a hash. A missing key yields an empty map.
func HGetAll(ctx context.Context, client redis.Cmdable, key string) (map[string]string, error) {
	return client.HGetAll(ctx, key).Result()
}

// Del deletes a key from Redis.
func Del(ctx context.Context, client redis.Cmdable, key string) error {
	return client.Del(ctx, key).Err()
}
