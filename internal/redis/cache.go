package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles catalog caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	CourseCacheTTL = 5 * time.Minute
	ComboCacheTTL  = 5 * time.Minute
)

// Key prefixes
const (
	courseCachePrefix = "cache:course:"
	comboCachePrefix  = "cache:combo:"
)

// CachedCourse represents a cached course price/duration.
type CachedCourse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Price        int64  `json:"price"`
	DurationDays int    `json:"duration_days"`
}

// CachedCombo represents a cached combo price/duration.
type CachedCombo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Price        int64    `json:"price"`
	DurationDays int      `json:"duration_days"`
	CourseIDs    []string `json:"course_ids"`
}

// GetCourse retrieves a course from cache. A miss returns nil, nil.
func (s *CacheStore) GetCourse(ctx context.Context, courseID string) (*CachedCourse, error) {
	var course CachedCourse
	ok, err := s.get(ctx, courseCachePrefix+courseID, &course)
	if err != nil || !ok {
		return nil, err
	}
	return &course, nil
}

// SetCourse stores a course in cache.
func (s *CacheStore) SetCourse(ctx context.Context, course *CachedCourse) error {
	return s.set(ctx, courseCachePrefix+course.ID, course, CourseCacheTTL)
}

// InvalidateCourse removes a course from cache.
func (s *CacheStore) InvalidateCourse(ctx context.Context, courseID string) error {
	return s.client.Del(ctx, courseCachePrefix+courseID).Err()
}

// GetCombo retrieves a combo from cache. A miss returns nil, nil.
func (s *CacheStore) GetCombo(ctx context.Context, comboID string) (*CachedCombo, error) {
	var combo CachedCombo
	ok, err := s.get(ctx, comboCachePrefix+comboID, &combo)
	if err != nil || !ok {
		return nil, err
	}
	return &combo, nil
}

// SetCombo stores a combo in cache.
func (s *CacheStore) SetCombo(ctx context.Context, combo *CachedCombo) error {
	return s.set(ctx, comboCachePrefix+combo.ID, combo, ComboCacheTTL)
}

// InvalidateCombo removes a combo from cache.
func (s *CacheStore) InvalidateCombo(ctx context.Context, comboID string) error {
	return s.client.Del(ctx, comboCachePrefix+comboID).Err()
}

func (s *CacheStore) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // Cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheStore) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}
