package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/crimson-sun/ucrf/internal/api"
	"github.com/crimson-sun/ucrf/internal/artifact"
	"github.com/crimson-sun/ucrf/internal/blob"
	"github.com/crimson-sun/ucrf/internal/cache"
	"github.com/crimson-sun/ucrf/internal/catalog"
	"github.com/crimson-sun/ucrf/internal/config"
	"github.com/crimson-sun/ucrf/internal/engine"
	"github.com/crimson-sun/ucrf/internal/engine/onnxmodel"
	"github.com/crimson-sun/ucrf/internal/engine/registry"
	"github.com/crimson-sun/ucrf/internal/logging"
	"github.com/crimson-sun/ucrf/internal/repository"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Set up graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Models are loaded once; a missing or broken artifact leaves the
	// registry unavailable and forecasts fall back to the placeholder.
	store, err := artifactStore(ctx, cfg.Models)
	if err != nil {
		return err
	}
	reg := registry.New(store, onnxmodel.Decoder(cfg.Models.RuntimeLibrary),
		registry.WithNames(cfg.Models.ClassifierName, cfg.Models.RegressorName),
		registry.WithLogger(logger))
	reg.Load(ctx)
	defer reg.Close()

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if cfg.Cache.RedisURL != "" {
		c, err := cache.Dial(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL, logger)
		if err != nil {
			logger.Warn("forecast cache disabled", "error", err)
		} else {
			defer c.Close()
			engOpts = append(engOpts, engine.WithCache(c))
		}
	}
	eng := engine.New(reg, cfg.ReferenceYear, engOpts...)

	srvOpts := []api.Option{
		api.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		api.WithLogger(logger),
	}
	if cfg.Database.Enabled() {
		db, err := repository.Open(ctx, repository.Config{
			URL:             cfg.Database.URL,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		srvOpts = append(srvOpts, api.WithRepositories(
			repository.NewVehicleRepository(db, logger),
			repository.NewServiceHistoryRepository(db, logger),
			db))
	} else {
		logger.Info("database disabled, vehicle and service history routes unavailable")
	}
	if cat := loadCatalog(cfg.Catalog.Path, logger); cat != nil {
		srvOpts = append(srvOpts, api.WithCatalog(cat))
	}
	s, err := api.New(eng, srvOpts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ucrf server listening", "addr", cfg.Server.Addr, "models_available", reg.Available())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func artifactStore(ctx context.Context, m config.ModelConfig) (artifact.Store, error) {
	if m.Store != "s3" {
		return artifact.NewDirStore(m.Dir), nil
	}
	client, err := blob.NewS3Client(ctx, m.S3Region, m.AWSProfile)
	if err != nil {
		return nil, err
	}
	return artifact.NewS3Store(client, m.S3Bucket, m.S3Prefix), nil
}

// loadCatalog returns the configured catalog, the built-in one when no
// path is set, or nil when the file cannot be read.
func loadCatalog(path string, logger *slog.Logger) *catalog.Catalog {
	if path == "" {
		return catalog.Default()
	}
	c, err := catalog.Load(path)
	if err != nil {
		logger.Warn("catalog unavailable", "path", path, "error", err)
		return nil
	}
	return c
}
