package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/snowcache/snowcache/internal/cache"
	"github.com/snowcache/snowcache/internal/cli/snowcachectl"
	"github.com/snowcache/snowcache/internal/client"
	"github.com/snowcache/snowcache/internal/config"
	"github.com/snowcache/snowcache/internal/observability"
	"github.com/snowcache/snowcache/internal/warehouse"
)

func main() {
	cfg, err := config.LoadFromEnv("snowcachectl")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize cache store", slog.Any("error", err))
		os.Exit(1)
	}

	session, err := warehouse.Connect(ctx, cfg.Warehouse, logger)
	if err != nil {
		logger.Error("failed to connect to warehouse", slog.Any("error", err))
		os.Exit(1)
	}

	queryClient, err := client.New(session, store, client.Options{
		SQLRoot: cfg.SQL.Root,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to build client", slog.Any("error", err))
		os.Exit(1)
	}
	code := snowcachectl.Run(ctx, os.Args[1:], snowcachectl.Options{
		Client: queryClient,
		Store:  store,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	_ = queryClient.Close()
	os.Exit(code)
}

func newStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	if cfg.Cache.Backend == config.CacheBackendS3 {
		return cache.NewS3(ctx, cache.S3Config{
			Endpoint:         cfg.Cache.S3.Endpoint,
			Region:           cfg.Cache.S3.Region,
			Bucket:           cfg.Cache.S3.Bucket,
			AccessKeyID:      cfg.Cache.S3.AccessKeyID,
			SecretAccessKey:  cfg.Cache.S3.SecretAccessKey,
			UseSSL:           cfg.Cache.S3.UseSSL,
			Prefix:           cfg.Cache.S3.Prefix,
			AutoCreateBucket: cfg.Cache.S3.AutoCreateBucket,
		})
	}
	return cache.NewLocal(cfg.Cache.Dir)
}
