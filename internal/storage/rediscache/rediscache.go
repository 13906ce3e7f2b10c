// Package rediscache caches order projections in Redis.
package rediscache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/drinkhub/internal/domain/order"
)

const defaultTTL = 10 * time.Minute

const (
	fieldVersion = "version"
	fieldData    = "data"
)

// setIfNewer writes the projection unless the cached one is at least as new.
// KEYS[1] = key, ARGV = version, payload, ttl in milliseconds.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

var _ order.ViewCache = (*Cache)(nil)

// Cache implements order.ViewCache on a Redis client.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	jitter time.Duration
}

// New returns a Cache that keeps entries for ttl plus up to a fifth of ttl
// of random jitter. A non-positive ttl selects the default.
func New(client redis.UniversalClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl, jitter: ttl / 5}
}

// Get returns order.ErrCacheMiss when the projection is not cached.
func (c *Cache) Get(ctx context.Context, id string) (*order.View, error) {
	data, err := c.client.HGet(ctx, cacheKey(id), fieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, order.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", id, err)
	}

	var v order.View
	if err := v.Decode(jx.DecodeBytes(data)); err != nil {
		return nil, fmt.Errorf("decoding cached order %q: %w", id, err)
	}
	return &v, nil
}

// Set stores the projection under its order id. A cached projection of the
// same or a newer version is kept.
func (c *Cache) Set(ctx context.Context, v *order.View) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	v.Encode(e)

	err := setIfNewer.Run(ctx, c.client, []string{cacheKey(v.ID)},
		v.Version, e.Bytes(), c.expiry().Milliseconds(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis set %q: %w", v.ID, err)
	}
	return nil
}

// Delete evicts the projection.
func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", id, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) expiry() time.Duration {
	if c.jitter <= 0 {
		return c.ttl
	}
	return c.ttl + rand.N(c.jitter)
}

func cacheKey(id string) string {
	return "order:" + id
}
