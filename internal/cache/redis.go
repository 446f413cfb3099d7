package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soen-app/praxis/pkg/envelope"
	"github.com/soen-app/praxis/pkg/logger"
)

// keyPrefix namespaces router entries in a shared Redis instance.
const keyPrefix = "praxis:route:"

// Redis is the shared cache store for multi-process deployments. Expiry is
// delegated to Redis TTLs, so Sweep is a no-op.
type Redis struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedis creates a store backed by the given Redis address.
func NewRedis(addr string, db int) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		log: logger.NewComponentLogger("cache.redis"),
	}
}

// Get implements Store. A Redis failure degrades to a miss; the router then
// treats the request as uncached.
func (r *Redis) Get(ctx context.Context, key string) (*envelope.Response, bool) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.log.Warn("cache lookup failed", "key", key, "error", err)
		return nil, false
	}

	var resp envelope.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		r.log.Warn("cache entry corrupt, dropping", "key", key, "error", err)
		r.client.Del(ctx, keyPrefix+key)
		return nil, false
	}
	return &resp, true
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, key string, resp *envelope.Response, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		r.log.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		r.log.Warn("cache store failed", "key", key, "error", err)
	}
}

// Sweep implements Store. Redis expires entries natively.
func (r *Redis) Sweep(ctx context.Context) {}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
