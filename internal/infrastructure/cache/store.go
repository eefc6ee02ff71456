// Package cache provides the read-through record cache. Entries live in
// Redis when it is reachable, otherwise in process memory.
package cache

import (
	"context"
	"time"
)

// Store is the key/value backend of the record cache
type Store interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Incr atomically increments the counter at key, creating it at 1
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}
