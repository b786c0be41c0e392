// Package cache stores rendered exports so that repeated requests for an
// unchanged figure skip the rendering engine.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for `glucifer serve`
//   - [NullCache]: caching disabled
//
// # Keys
//
// A [Keyer] derives keys from a hash of the encoded figure state plus the
// export parameters. The same state rendered with the same parameters maps
// to the same key, whichever process produced it.
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ImageKey(cache.Hash(stateJSON), cache.ImageKeyOpts{Step: 10, Width: 640, Height: 480})
//	if data, ok, _ := c.Get(ctx, key); ok {
//	    return data, nil
//	}
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. The bool is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any held resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}
