package cache

import "time"

// BytesCache stores pre-serialized API responses with a TTL. Handlers
// cache the JSON row envelope as raw bytes so a hit skips both the
// usecase call and re-marshaling.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
