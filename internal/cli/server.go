package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"staar-quiz-service/internal/config"
	"staar-quiz-service/internal/infra/memory"
	rediscache "staar-quiz-service/internal/infra/redis"
	transport "staar-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Source.Kind == config.SourcePostgres {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	b, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	var registry transport.SessionRegistry
	if b.redis != nil {
		registry = rediscache.NewSessionStore(b.redis, cfg.Redis.Prefix, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		registry = memory.NewSessionStore()
	}

	wsHandler := transport.NewWSHandler(b.store, registry, cfg.Quiz.QuestionTimer, sessionOptions(cfg.Quiz)...)
	router := transport.NewRouter(transport.NewHandler(b.store, cfg.Server.Version), transport.RouterConfig{
		ImagesDir: cfg.Server.ImagesDir,
		WS:        wsHandler,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Warm the store so a broken source shows up in the logs at boot.
	if _, err := b.store.ListPublicQuestions(ctx); err != nil {
		slog.Warn("question source unavailable, serving an empty quiz until it loads", "error", err)
	}

	go func() {
		slog.Info("starting quiz service", "port", finalPort, "version", cfg.Server.Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server...")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
