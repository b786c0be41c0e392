package cache

import (
	"context"
	"time"

	"github.com/chronictectonic/underworld2/pkg/observability"
)

// Fetch returns the cached value for key or, on a miss, calls fill and
// stores its result. Read failures count as misses. Empty results and
// fill errors are not cached. Hits, misses and writes go to the
// registered cache hooks under keyType.
func Fetch(ctx context.Context, c Cache, keyType, key string, ttl time.Duration, fill func(context.Context) ([]byte, error)) ([]byte, error) {
	hooks := observability.Cache()
	if data, ok, err := c.Get(ctx, key); err == nil && ok {
		hooks.OnCacheHit(ctx, keyType)
		return data, nil
	}
	hooks.OnCacheMiss(ctx, keyType)

	data, err := fill(ctx)
	if err != nil || len(data) == 0 {
		return data, err
	}
	if err := c.Set(ctx, key, data, ttl); err == nil {
		hooks.OnCacheSet(ctx, keyType, len(data))
	}
	return data, nil
}
