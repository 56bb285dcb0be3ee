package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, name, token string) error
}

// CacheStoreInterface defines the interface for catalog caching.
type CacheStoreInterface interface {
	GetCourse(ctx context.Context, courseID string) (*CachedCourse, error)
	SetCourse(ctx context.Context, course *CachedCourse) error
	GetCombo(ctx context.Context, comboID string) (*CachedCombo, error)
	SetCombo(ctx context.Context, combo *CachedCombo) error
}

// SequenceStoreInterface defines the interface for shared counters.
type SequenceStoreInterface interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface     = (*LockStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
	_ SequenceStoreInterface = (*SequenceStore)(nil)
)
