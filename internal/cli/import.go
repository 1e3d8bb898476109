package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"staar-quiz-service/internal/app"
	"staar-quiz-service/internal/config"
	"staar-quiz-service/internal/infra/file"
	pgstore "staar-quiz-service/internal/infra/postgres"
	rediscache "staar-quiz-service/internal/infra/redis"
	"staar-quiz-service/internal/infra/xlsx"
)

// NewImportCmd loads questions from a file or spreadsheet into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Replace the Postgres question set with a YAML, JSON or xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), cfg, args[0], kind)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "source kind (file or xlsx); derived from the extension when empty")
	return cmd
}

func runImport(ctx context.Context, cfg config.Config, path, kind string) error {
	source, err := importSource(path, kind)
	if err != nil {
		return err
	}
	questions, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := app.ValidateQuestions(questions); err != nil {
		return fmt.Errorf("invalid question set in %s: %w", path, err)
	}

	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuestionLoader(pool)
	if err := loader.ReplaceQuestions(ctx, questions); err != nil {
		return err
	}
	slog.Info("imported questions", "path", path, "count", len(questions))

	return invalidateQuestionCache(ctx, cfg, loader)
}

// invalidateQuestionCache drops the shared cached set so instances pick up the new table.
func invalidateQuestionCache(ctx context.Context, cfg config.Config, loader rediscache.QuestionLoader) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	cache := rediscache.NewQuestionCache(client, loader, cfg.Redis.Prefix, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	if err := cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate question cache: %w", err)
	}
	slog.Info("question cache invalidated", "prefix", cfg.Redis.Prefix)
	return nil
}

func importSource(path, kind string) (app.QuestionSource, error) {
	if kind == "" {
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			kind = config.SourceXLSX
		} else {
			kind = config.SourceFile
		}
	}
	switch kind {
	case config.SourceXLSX:
		return xlsx.NewSheetSource(path), nil
	case config.SourceFile:
		return file.NewQuestionFile(path), nil
	default:
		return nil, fmt.Errorf("cannot import from %q source", kind)
	}
}
