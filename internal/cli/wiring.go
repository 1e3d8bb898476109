package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"staar-quiz-service/internal/app"
	"staar-quiz-service/internal/config"
	"staar-quiz-service/internal/infra/file"
	"staar-quiz-service/internal/infra/memory"
	pgstore "staar-quiz-service/internal/infra/postgres"
	rediscache "staar-quiz-service/internal/infra/redis"
	"staar-quiz-service/internal/infra/xlsx"
)

// backend bundles the question store with the connections it was built on.
type backend struct {
	store *app.QuestionStore
	redis *redis.Client
	pool  *pgxpool.Pool
}

func (b *backend) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func newBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	source, err := b.openSource(ctx, cfg)
	if err != nil {
		b.Close()
		return nil, err
	}
	if b.redis != nil {
		ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		source = rediscache.NewQuestionCache(b.redis, source, cfg.Redis.Prefix, ttl)
	}

	b.store = app.NewQuestionStore(source, config.TTLDuration(cfg.Source.RefreshTTL, 0))
	slog.Info("question store ready", "source", cfg.Source.Kind, "redis_cache", b.redis != nil)
	return b, nil
}

func (b *backend) openSource(ctx context.Context, cfg config.Config) (app.QuestionSource, error) {
	switch cfg.Source.Kind {
	case config.SourceFile:
		return file.NewQuestionFile(cfg.Source.Path), nil
	case config.SourceXLSX:
		return xlsx.NewSheetSource(cfg.Source.Path), nil
	case config.SourcePostgres:
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres source needs postgres.url")
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
		return pgstore.NewQuestionLoader(pool), nil
	default:
		return memory.NewStaticSource(memory.DefaultQuestions()), nil
	}
}

func sessionOptions(cfg config.QuizConfig) []app.SessionOption {
	return []app.SessionOption{
		app.WithQuestionLimit(cfg.MaxQuestions),
		app.WithHighScoreThreshold(cfg.HighScoreThreshold),
		app.WithRevealOnTimeout(cfg.RevealOnTimeout),
	}
}
