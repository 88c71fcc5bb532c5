package assetcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/global-nexus/newscache/config"
	"github.com/global-nexus/newscache/log"
	"github.com/pierrec/lz4"
	"github.com/redis/go-redis/v9"
)

const getTimeout = 2 * time.Second
const putTimeout = 2 * time.Second
const purgeTimeout = 10 * time.Second
const statsTimeout = 500 * time.Millisecond

// redisCache stores assets in redis, bodies lz4-framed, entries expiring via
// redis TTLs.
type redisCache struct {
	client     redis.UniversalClient
	generation string
	expire     time.Duration
}

func newRedisCache(client redis.UniversalClient, cfg config.Cache) *redisCache {
	return &redisCache{
		client:     client,
		generation: cfg.Generation,
		expire:     time.Duration(cfg.Expire),
	}
}

func (r *redisCache) Name() string {
	return "redis"
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

// Stats can only report the number of keys in the database, not their size.
func (r *redisCache) Stats() Stats {
	ctx, cancelFunc := context.WithTimeout(context.Background(), statsTimeout)
	defer cancelFunc()

	n, err := r.client.DBSize(ctx).Result()
	if err != nil {
		log.Errorf("cache %q: failed to fetch nb of keys: %s", r.Name(), err)
	}
	return Stats{Items: uint64(n)}
}

func (r *redisCache) Get(key *Key) (*Asset, error) {
	ctx, cancelFunc := context.WithTimeout(context.Background(), getTimeout)
	defer cancelFunc()

	stringKey := key.redisKey()
	val, err := r.client.Get(ctx, stringKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMissing
	}
	if err != nil {
		log.Errorf("cache %q: failed to get key %s: %s", r.Name(), stringKey, err)
		return nil, ErrMissing
	}

	a, err := decodeAsset(lz4.NewReader(bytes.NewReader(val)))
	if err != nil {
		return nil, fmt.Errorf("cache %q: corrupted entry %s: %w", r.Name(), stringKey, err)
	}
	return a, nil
}

func (r *redisCache) Put(a *Asset, key *Key) error {
	bb := &bytes.Buffer{}
	zw := lz4.NewWriter(bb)
	if err := encodeAsset(zw, a); err != nil {
		return fmt.Errorf("cache %q: cannot encode %q: %w", r.Name(), key.URL, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("cache %q: cannot compress %q: %w", r.Name(), key.URL, err)
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), putTimeout)
	defer cancelFunc()

	stringKey := key.redisKey()
	if err := r.client.Set(ctx, stringKey, bb.Bytes(), r.expire).Err(); err != nil {
		return fmt.Errorf("cache %q: failed to put key %s: %w", r.Name(), stringKey, err)
	}
	return nil
}

// Purge scans for asset keys of other generations and deletes them.
func (r *redisCache) Purge(keepGeneration string) (int, error) {
	ctx, cancelFunc := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancelFunc()

	keepPrefix := fmt.Sprintf("asset:%s:", keepGeneration)
	removed := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, "asset:*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("cache %q: scan failed: %w", r.Name(), err)
		}

		var stale []string
		for _, k := range keys {
			if !strings.HasPrefix(k, keepPrefix) {
				stale = append(stale, k)
			}
		}
		if len(stale) > 0 {
			if err := r.client.Del(ctx, stale...).Err(); err != nil {
				return removed, fmt.Errorf("cache %q: failed to delete stale generation keys: %w", r.Name(), err)
			}
			removed += len(stale)
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
