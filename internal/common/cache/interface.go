package cache

import (
	"context"
	"time"
)

// Cache is the key-value and locking surface used by the judge.
type Cache interface {
	BasicOps
	LockOps

	Ping(ctx context.Context) error
	Close() error
}

// BasicOps defines basic key-value operations.
type BasicOps interface {
	// Get returns "" with a nil error when key does not exist.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// LockOps defines owner-scoped distributed locks.
type LockOps interface {
	// TryLock sets key to owner when absent. It reports whether the lock was taken.
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Unlock deletes key only while it still belongs to owner.
	Unlock(ctx context.Context, key, owner string) error
}
