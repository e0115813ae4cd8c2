package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fmuoria/nexushire/internal/api"
	"github.com/fmuoria/nexushire/internal/auth"
	"github.com/fmuoria/nexushire/internal/config"
	"github.com/fmuoria/nexushire/internal/progress"
	"github.com/fmuoria/nexushire/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the screening HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// newProgressStore picks Redis when enabled, the in-process store otherwise.
func newProgressStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (progress.Store, func(), error) {
	if !cfg.Enabled {
		return progress.NewMemoryStore(progress.DefaultMaxRuns), func() {}, nil
	}
	client, err := progress.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Using redis progress store", zap.String("addr", cfg.Addr))
	return progress.NewRedisStore(client, cfg.TTL), func() { _ = client.Close() }, nil
}

func serve(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := interruptible(ctx)
	defer stop()

	if cfg.Database.MigrateOnStart {
		if err := storage.MigrateUp(cfg.Database.URL); err != nil {
			return err
		}
	}

	db, err := storage.Open(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		return err
	}
	defer db.Close()

	store, closeStore, err := newProgressStore(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeStore()

	batches := storage.NewBatchRepository(db)
	screening, cleanup, err := buildAgent(ctx, cfg, log, batches, store)
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := api.NewServer(
		cfg.Server,
		storage.NewUserRepository(db),
		batches,
		screening,
		auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		log,
	)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	log.Info("Waiting for screening runs to finish")
	screening.Wait()
	return nil
}
