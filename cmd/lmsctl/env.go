package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lms/internal/app"
	"lms/internal/config"
)

// env is an open connection set for one command invocation.
type env struct {
	cfg      *config.Config
	db       *sql.DB
	redis    *redis.Client
	logger   *zap.Logger
	services *app.Services
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg.Server.Env)

	db, err := app.NewDatabase(ctx, cfg.Database, nil)
	if err != nil {
		return nil, err
	}
	rdb, err := app.NewRedisClient(ctx, cfg.Redis, nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	services, err := app.NewServices(ctx, cfg, db, rdb, logger)
	if err != nil {
		db.Close()
		if rdb != nil {
			rdb.Close()
		}
		return nil, fmt.Errorf("wire services: %w", err)
	}
	return &env{cfg: cfg, db: db, redis: rdb, logger: logger, services: services}, nil
}

func (e *env) Close() {
	_ = e.services.Close()
	if e.redis != nil {
		_ = e.redis.Close()
	}
	_ = e.db.Close()
	_ = e.logger.Sync()
}
