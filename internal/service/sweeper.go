package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"lms/internal/redis"
	"lms/internal/repository"
)

const sweepJobName = "combo-expiration"

// ExpirationSweeper marks bundle enrollments past their expiration date as expired.
type ExpirationSweeper struct {
	store     repository.Store
	lockStore redis.LockStoreInterface
	lockTTL   time.Duration
	timeout   time.Duration
	cron      *cron.Cron
	logger    *zap.Logger
	now       Clock
}

// NewExpirationSweeper creates a sweeper. lockStore is optional; without it every
// instance sweeps on every tick, which is safe because Sweep is idempotent.
func NewExpirationSweeper(store repository.Store, lockStore redis.LockStoreInterface, lockTTL, timeout time.Duration, logger *zap.Logger) *ExpirationSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = timeout
	}
	return &ExpirationSweeper{
		store:     store,
		lockStore: lockStore,
		lockTTL:   lockTTL,
		timeout:   timeout,
		logger:    logger,
		now:       systemClock,
	}
}

// SetClock replaces the time source.
func (s *ExpirationSweeper) SetClock(clock Clock) {
	s.now = clock
}

// Sweep expires every combo enrollment whose expiration date has passed and that
// is neither completed nor already expired. It returns how many rows it marked.
func (s *ExpirationSweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.store.ComboEnrollments().ExpireDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire combo enrollments: %w", err)
	}
	s.logger.Info("combo enrollments swept", zap.Int64("expired", n), zap.Time("as_of", now))
	return n, nil
}

// RunOnce sweeps under the job lock. It reports false when another instance holds it.
func (s *ExpirationSweeper) RunOnce(ctx context.Context) (bool, error) {
	if s.lockStore != nil {
		name := redis.JobLockName(sweepJobName)
		token, ok, err := s.lockStore.Acquire(ctx, name, s.lockTTL)
		if err != nil {
			return false, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			s.logger.Debug("sweep skipped, lock held elsewhere")
			return false, nil
		}
		defer func() {
			if err := s.lockStore.Release(context.WithoutCancel(ctx), name, token); err != nil {
				s.logger.Warn("release sweep lock", zap.Error(err))
			}
		}()
	}

	if _, err := s.Sweep(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Start schedules RunOnce on spec. Overlapping runs are skipped.
func (s *ExpirationSweeper) Start(spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("combo expiration sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweeper %q: %w", spec, err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("expiration sweeper started", zap.String("schedule", spec))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *ExpirationSweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
