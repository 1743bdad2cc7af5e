// Package app wires configuration into stores, caches and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/cache"
	"github.com/noah-isme/pricing-engine/internal/config"
	"github.com/noah-isme/pricing-engine/internal/db/migrate"
	"github.com/noah-isme/pricing-engine/internal/lock"
	"github.com/noah-isme/pricing-engine/internal/obs"
	"github.com/noah-isme/pricing-engine/internal/repo"
)

// Infra holds the external connections shared by the API, the worker and
// the CLI. Redis is optional; without it caching, rate limits and
// background tasks degrade to in-process behaviour.
type Infra struct {
	Store      repo.Store
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Cache      *cache.JSON
	TaskClient *asynq.Client

	closers []func() error
}

// Open connects to the configured store and Redis.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, appName string) (*Infra, error) {
	infra := &Infra{}
	if err := infra.openStore(ctx, cfg, appName); err != nil {
		return nil, err
	}
	if cfg.HasRedis() {
		if err := infra.openRedis(ctx, cfg, logger); err != nil {
			infra.Close()
			return nil, err
		}
	}
	infra.Cache = cache.NewJSON(infra.Redis, cfg.CatalogCacheTTL)
	return infra, nil
}

// NewInfra wraps an existing store and optional Redis client. Tests use it
// with repo.NewMemory and miniredis.
func NewInfra(store repo.Store, rdb *redis.Client, cfg *config.Config) *Infra {
	return &Infra{Store: store, Redis: rdb, Cache: cache.NewJSON(rdb, cfg.CatalogCacheTTL)}
}

func (i *Infra) openStore(ctx context.Context, cfg *config.Config, appName string) error {
	if cfg.UsesMemoryStore() {
		i.Store = repo.NewMemory()
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	i.Pool = pool
	i.Store = repo.NewPostgres(pool)
	i.closers = append(i.closers, func() error { pool.Close(); return nil })
	return nil
}

func (i *Infra) openRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if cfg.TracingEnabled {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Warn().Err(err).Msg("instrument redis tracing")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	i.Redis = client
	i.closers = append(i.closers, client.Close)

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse task queue redis url: %w", err)
	}
	i.TaskClient = asynq.NewClient(redisOpt)
	i.closers = append(i.closers, i.TaskClient.Close)
	return nil
}

// Migrate applies pending schema migrations. With Redis available the run
// holds migrate.LockKey so replicas starting together migrate once.
func (i *Infra) Migrate(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.UsesMemoryStore() {
		return nil
	}
	runner := migrate.Runner{DatabaseURL: cfg.DatabaseURL, Logger: logger, LockTTL: cfg.LockTTL}
	if i.Redis != nil {
		runner.Locker = lock.Locker{R: i.Redis, RetryBackoff: cfg.LockRetryBackoff}
	}
	return runner.Up(ctx)
}

// Close releases connections in reverse order of opening.
func (i *Infra) Close() error {
	var errs error
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		errs = errors.Join(errs, i.closers[idx]())
	}
	i.closers = nil
	return errs
}
