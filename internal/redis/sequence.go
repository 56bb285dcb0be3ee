package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// sequenceTTL keeps a daily counter around past midnight in every timezone.
const sequenceTTL = 48 * time.Hour

// SequenceStore hands out monotonically increasing numbers per key.
type SequenceStore struct {
	client *redis.Client
}

// NewSequenceStore creates a new SequenceStore.
func NewSequenceStore(client *redis.Client) *SequenceStore {
	return &SequenceStore{client: client}
}

// Next increments and returns the counter stored under key. The first increment
// of a key sets its expiry.
func (s *SequenceStore) Next(ctx context.Context, key string) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, "seq:"+key)
	pipe.ExpireNX(ctx, "seq:"+key, sequenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
