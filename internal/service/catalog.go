package service

import (
	"context"

	"go.uber.org/zap"

	"lms/internal/domain"
	"lms/internal/redis"
)

// CatalogReader looks up purchasable items.
type CatalogReader interface {
	GetCourse(ctx context.Context, courseID string) (*domain.Course, error)
	GetCombo(ctx context.Context, comboID string) (*domain.Combo, error)
}

// CachedCatalog serves prices from Redis and falls back to the underlying
// catalog. Cache errors are logged and never fail a lookup.
type CachedCatalog struct {
	next   CatalogReader
	cache  redis.CacheStoreInterface
	logger *zap.Logger
}

// NewCachedCatalog wraps next with a read-through cache.
func NewCachedCatalog(next CatalogReader, cache redis.CacheStoreInterface, logger *zap.Logger) *CachedCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCatalog{next: next, cache: cache, logger: logger}
}

// GetCourse returns a course, from cache when possible.
func (c *CachedCatalog) GetCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	cached, err := c.cache.GetCourse(ctx, courseID)
	if err != nil {
		c.logger.Warn("course cache read", zap.String("course_id", courseID), zap.Error(err))
	}
	if cached != nil {
		return &domain.Course{
			ID:           cached.ID,
			Title:        cached.Title,
			Price:        cached.Price,
			DurationDays: cached.DurationDays,
		}, nil
	}

	course, err := c.next.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetCourse(ctx, &redis.CachedCourse{
		ID:           course.ID,
		Title:        course.Title,
		Price:        course.Price,
		DurationDays: course.DurationDays,
	}); err != nil {
		c.logger.Warn("course cache write", zap.String("course_id", courseID), zap.Error(err))
	}
	return course, nil
}

// GetCombo returns a combo, from cache when possible.
func (c *CachedCatalog) GetCombo(ctx context.Context, comboID string) (*domain.Combo, error) {
	cached, err := c.cache.GetCombo(ctx, comboID)
	if err != nil {
		c.logger.Warn("combo cache read", zap.String("combo_id", comboID), zap.Error(err))
	}
	if cached != nil {
		return &domain.Combo{
			ID:           cached.ID,
			Title:        cached.Title,
			Price:        cached.Price,
			DurationDays: cached.DurationDays,
			CourseIDs:    cached.CourseIDs,
		}, nil
	}

	combo, err := c.next.GetCombo(ctx, comboID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetCombo(ctx, &redis.CachedCombo{
		ID:           combo.ID,
		Title:        combo.Title,
		Price:        combo.Price,
		DurationDays: combo.DurationDays,
		CourseIDs:    combo.CourseIDs,
	}); err != nil {
		c.logger.Warn("combo cache write", zap.String("combo_id", comboID), zap.Error(err))
	}
	return combo, nil
}
