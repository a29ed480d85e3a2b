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
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/freema/docsgate/api"
	"github.com/freema/docsgate/internal/catalog"
	"github.com/freema/docsgate/internal/config"
	"github.com/freema/docsgate/internal/logger"
	"github.com/freema/docsgate/internal/merge"
	"github.com/freema/docsgate/internal/redisclient"
	"github.com/freema/docsgate/internal/relay"
	"github.com/freema/docsgate/internal/server"
	"github.com/freema/docsgate/internal/tracing"
	"github.com/freema/docsgate/internal/upstream"
)

const sqlitePurgeInterval = 10 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return serve(configPath)
		},
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting docsgate", "version", version)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	shutdownTracing, err := tracing.Setup(appCtx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Endpoint:     cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		ServiceName:  "docsgate",
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer flushTracing(shutdownTracing)

	var rdb *redisclient.Client
	if cfg.RedisRequired() {
		rdb, err = connectRedis(cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	c, err := catalog.New(lo.Map(cfg.APIs, func(a config.APIConfig, _ int) catalog.API {
		return catalog.API{Name: a.Name, Group: a.Group, SpecURL: a.SpecURL, Description: a.Description}
	}))
	if err != nil {
		return fmt.Errorf("building api catalog: %w", err)
	}
	slog.Info("api catalog loaded", "apis", c.Len())

	fetcher := upstream.NewFetcher(cfg.Upstream.ConnectTimeout, cfg.Upstream.Timeout)
	specs, err := newSpecSource(appCtx, cfg.Cache, fetcher, rdb)
	if err != nil {
		return err
	}
	defer specs.close()

	doc, err := merge.NewDocument(api.OpenAPISpec, merge.DocumentConfig{
		Info: merge.Info{
			Title:       cfg.OpenAPI.Title,
			Version:     cfg.OpenAPI.Version,
			Description: cfg.OpenAPI.Description,
		},
		ServerURL:   cfg.Server.TargetBaseURL,
		ExternalURL: cfg.OpenAPI.ExternalURL,
		Merge: merge.Options{
			TagPrefix:    cfg.OpenAPI.TagPrefix,
			PathPrefix:   cfg.OpenAPI.PathPrefix,
			SchemaPrefix: cfg.OpenAPI.SchemaPrefix,
			PreferLocal:  cfg.OpenAPI.PreferLocal,
		},
	}, specs.source)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Catalog:  c,
		Source:   specs.source,
		Document: doc,
		Redis:    rdb,
	}
	if specs.cached != nil {
		deps.Cache = specs.cached
	}
	if cfg.Relay.Enabled {
		rl, err := relay.New(relay.Config{
			TargetBaseURL:         cfg.Server.TargetBaseURL,
			Excluded:              cfg.Relay.Excluded,
			ServiceToken:          cfg.Relay.ServiceToken,
			DialTimeout:           cfg.Relay.DialTimeout,
			ResponseHeaderTimeout: cfg.Relay.ResponseHeaderTimeout,
			MaxIdleConns:          cfg.Relay.MaxIdleConns,
			MaxIdleConnsPerHost:   cfg.Relay.MaxIdleConnsPerHost,
		})
		if err != nil {
			return fmt.Errorf("configuring relay: %w", err)
		}
		deps.Relay = rl
		slog.Info("relay enabled", "prefix", cfg.Relay.Prefix, "target", cfg.Server.TargetBaseURL)
	}

	srv := server.New(cfg, deps, version)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	slog.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	appCancel()

	slog.Info("shutdown complete")
	return nil
}

const tracingFlushTimeout = 5 * time.Second

// flushTracing exports pending spans on every exit path of serve.
func flushTracing(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), tracingFlushTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.Error("tracing shutdown error", "error", err)
	}
}

func connectRedis(cfg config.RedisConfig) (*redisclient.Client, error) {
	rdb, err := redisclient.New(cfg.URL, cfg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	slog.Info("redis connected")
	return rdb, nil
}

type specSource struct {
	source upstream.Source
	cached *upstream.CachedSource
	close  func()
}

// newSpecSource puts the configured cache backend in front of fetcher.
func newSpecSource(ctx context.Context, cfg config.CacheConfig, fetcher *upstream.Fetcher, rdb *redisclient.Client) (*specSource, error) {
	s := &specSource{source: fetcher, close: func() {}}

	var cache upstream.Cache
	switch cfg.Backend {
	case config.CacheNone:
		slog.Info("spec cache disabled")
		return s, nil
	case config.CacheMemory:
		cache = upstream.NewMemoryCache()
	case config.CacheRedis:
		cache = upstream.NewRedisCache(rdb)
	case config.CacheSQLite:
		sc, err := upstream.OpenSQLiteCache(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite cache: %w", err)
		}
		go purgeLoop(ctx, sc)
		s.close = func() { _ = sc.Close() }
		cache = sc
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	s.cached = upstream.NewCachedSource(fetcher, cache, cfg.TTL)
	s.source = s.cached
	slog.Info("spec cache enabled", "backend", cache.Name(), "ttl", cfg.TTL)
	return s, nil
}

func purgeLoop(ctx context.Context, sc *upstream.SQLiteCache) {
	ticker := time.NewTicker(sqlitePurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sc.Purge(ctx)
			if err != nil {
				slog.Warn("sqlite cache purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("sqlite cache purged", "entries", n)
			}
		}
	}
}
