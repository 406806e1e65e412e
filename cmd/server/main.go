package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leca/tiered-images/internal/config"
	"github.com/leca/tiered-images/internal/database"
	"github.com/leca/tiered-images/internal/router"
	"github.com/leca/tiered-images/internal/storage"
	"github.com/leca/tiered-images/internal/tier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seedTiers(ctx, tier.NewRegistry(db), cfg.TiersFile); err != nil {
		slog.Error("failed to seed account tiers", "error", err)
		os.Exit(1)
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}

	srv := router.New(db, store, cfg)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "addr", cfg.ListenAddr, "storage", cfg.Storage.Backend, "workers", cfg.Workers)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "minio":
		m := cfg.MinIO
		store, err := storage.NewMinIO(ctx, m.Endpoint, m.AccessKey, m.SecretKey, m.Bucket, m.UseSSL, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "filesystem", "":
		return storage.NewFileSystem(cfg.Storage.Path, cfg.BaseURL), nil
	default:
		return nil, errors.New("unknown storage backend " + cfg.Storage.Backend)
	}
}

// seedTiers loads the tier file when one is configured. Without one, the
// built-in tiers are installed into an empty catalog.
func seedTiers(ctx context.Context, tiers *tier.Registry, path string) error {
	if path != "" {
		seed, err := tier.LoadSeedFile(path)
		if err != nil {
			return err
		}
		slog.Info("seeding account tiers", "file", path, "count", len(seed))
		return tiers.Seed(ctx, seed)
	}

	existing, err := tiers.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	slog.Info("seeding default account tiers")
	return tiers.Seed(ctx, tier.Defaults())
}
