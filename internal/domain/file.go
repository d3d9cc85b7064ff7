package domain

import (
	"context"
	"time"
)

// FileRepository stores uploaded binaries such as profile pictures
type FileRepository interface {
	// Upload saves a file under key and returns its access URL
	Upload(ctx context.Context, file []byte, key string, contentType string) (string, error)
}

// CacheRepository is a JSON key/value cache with TTL
type CacheRepository interface {
	// Get fills dest or returns a cache-miss error
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// UserLocker serializes work per user across processes
type UserLocker interface {
	// Lock blocks until the user's lock is held or the wait budget is spent.
	// The returned func releases the lock.
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}
