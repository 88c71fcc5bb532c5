package clients

import (
	"context"
	"fmt"

	"github.com/global-nexus/newscache/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns a redis client for the asset cache backend,
// verifying connectivity before use.
func NewRedisClient(cfg config.RedisCacheConfig) (redis.UniversalClient, error) {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addresses,
		Username: cfg.Username,
		Password: cfg.Password,
	})

	if err := r.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return r, nil
}
