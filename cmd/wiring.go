package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/entalk/internal/adapters/generator"
	"github.com/okian/entalk/internal/adapters/lock"
	"github.com/okian/entalk/internal/adapters/repository"
	app "github.com/okian/entalk/internal/app"
	"github.com/okian/entalk/internal/config"
	"github.com/okian/entalk/internal/domain/dedupe"
	"github.com/okian/entalk/internal/domain/scoring"
	"github.com/okian/entalk/pkg/logger"
)

const redisDialTimeout = 2 * time.Second

// newService assembles the engine from cfg. The returned service owns the
// store and the locker; call Stop to release them.
func newService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	locker, err := newLocker(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return assemble(ctx, cfg, locker)
}

// assemble builds the service around locker, closing it if the store cannot be opened.
func assemble(ctx context.Context, cfg *config.Config, locker lock.Locker) (*app.Service, error) {
	log := logger.Get()

	store, err := openStore(ctx, cfg)
	if err != nil {
		if cerr := locker.Close(); cerr != nil {
			log.Warn(ctx, "closing locker", logger.Error(cerr))
		}
		return nil, err
	}

	var scorerOpts []scoring.Option
	if cfg.ScoringSeed != 0 {
		scorerOpts = append(scorerOpts, scoring.WithSeed(cfg.ScoringSeed))
	}

	return app.New(
		app.WithLogger(log.Named("engine")),
		app.WithStore(store),
		app.WithLocker(locker),
		app.WithGenerator(newGenerator(ctx, cfg, log)),
		app.WithScorer(scoring.NewScorer(scorerOpts...)),
		app.WithCooldown(cfg.Cooldown()),
		app.WithCrossLocationLimit(cfg.CrossLocationLimit),
		app.WithCoverageQuota(cfg.CoverageQuota),
		app.WithNoveltyQuota(cfg.NoveltyQuota),
		app.WithDeckTarget(cfg.DeckTarget),
		app.WithGeneratorTimeout(cfg.GeneratorTimeout()),
		app.WithSeedLocations(cfg.SeedLocations),
		app.WithDeduper(dedupe.NewWindow(dedupe.WithMaxSize(cfg.FeedbackDedupeSize))),
	), nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.StoreDriver == config.StoreSQLite {
		store, err := repository.OpenSQLite(ctx, cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil
	}
	return repository.NewMemoryStore(), nil
}

func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, error) {
	if cfg.LockDriver != config.LockRedis {
		return lock.NewLocal(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		DialTimeout: redisDialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return lock.NewRedis(client, lock.WithTTL(cfg.LockTTL())), nil
}

// newGenerator picks the configured backend. openai without a key runs on templates.
func newGenerator(ctx context.Context, cfg *config.Config, log logger.Logger) generator.Generator {
	gen, err := generator.New(cfg.GeneratorBackend, cfg.GeneratorAPIKey,
		generator.WithBaseURL(cfg.GeneratorBaseURL),
		generator.WithModel(cfg.GeneratorModel),
		generator.WithTemperature(cfg.GeneratorTemperature),
		generator.WithMaxRetries(cfg.GeneratorMaxRetries),
	)
	if err != nil {
		log.Warn(ctx, "generator unavailable, using templates",
			logger.String("backend", cfg.GeneratorBackend),
			logger.Error(err),
		)
		return generator.NewTemplate()
	}
	return gen
}
