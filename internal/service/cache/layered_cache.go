package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "SpendLens/pkg/cache"
)

// LayeredBytesCache adapts the shared memory+Redis layered cache to
// the BytesCache API. Payloads round-trip as strings so the layered
// cache stores them verbatim instead of JSON-encoding them.
type LayeredBytesCache struct {
	svc pkgcache.Service
}

func NewLayeredBytesCache(svc pkgcache.Service) *LayeredBytesCache {
	return &LayeredBytesCache{svc: svc}
}

func (c *LayeredBytesCache) GetBytes(key string) ([]byte, bool, error) {
	var s string
	err := c.svc.Get(context.Background(), key, &s)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(s), true, nil
}

func (c *LayeredBytesCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	return c.svc.Set(context.Background(), key, string(value), ttl)
}
