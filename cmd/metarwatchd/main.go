package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/metarwatch/metarwatch/internal/api"
	"github.com/metarwatch/metarwatch/internal/archive"
	"github.com/metarwatch/metarwatch/internal/cache"
	"github.com/metarwatch/metarwatch/internal/catalog"
	"github.com/metarwatch/metarwatch/internal/config"
	"github.com/metarwatch/metarwatch/internal/fetcher"
	"github.com/metarwatch/metarwatch/internal/observability"
	"github.com/metarwatch/metarwatch/internal/query"
	"github.com/metarwatch/metarwatch/internal/store"
	"github.com/metarwatch/metarwatch/pkg/http/client"
)

func main() {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()
	log.Info().Str("env", cfg.Environment).Msg("metarwatch starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("metarwatch exited")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	recordStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	queryCache := buildCache(cfg)
	queryService := query.NewService(recordStore, queryCache, metrics)

	catalogClient := client.New(client.Options{
		BaseURL:   cfg.CatalogBaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})
	reportsClient := client.New(client.Options{
		BaseURL:   cfg.ReportsBaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})

	updater := catalog.NewUpdater(catalogClient, recordStore, metrics, catalog.Options{
		Path:    cfg.CatalogPath,
		Archive: buildArchiver(ctx, cfg),
	})

	reportFetcher := fetcher.New(reportsClient, recordStore, metrics, fetcher.Options{
		Cooldown:       cfg.FetchCooldown,
		Window:         cfg.FetchWindow,
		MaxAttempts:    cfg.MaxFetchAttempts,
		ConnectBackoff: cfg.ConnectBackoff,
	})

	go runPeriodic(ctx, "catalog harvest", cfg.HarvestInterval, updater.HarvestStations)
	go runPeriodic(ctx, "report fetch", cfg.FetchInterval, reportFetcher.Run)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewHandler(queryService).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("query API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg *config.Config) (store.RecordStore, error) {
	if os.Getenv("USE_MEMSTORE") == "1" {
		log.Warn().Msg("using in-memory store; data will not survive restarts")
		return store.NewMemStore(), nil
	}

	dynamoClient, err := store.NewDynamoClient(ctx)
	if err != nil {
		return nil, err
	}
	return store.NewDynamoStore(dynamoClient, store.DynamoStoreOptions{
		StationsTable:     cfg.StationsTable,
		ObservationsTable: cfg.ObservationsTable,
	}), nil
}

func buildCache(cfg *config.Config) cache.QueryCache {
	if cfg.MemcachedAddrs != "" {
		return cache.NewMemcached(cfg.MemcachedAddrs, 0, cfg.CacheTTL)
	}
	log.Info().Msg("no memcached configured, using in-process LRU cache")
	return cache.NewLRU(cfg.CacheLRUSize, cfg.CacheTTL)
}

func buildArchiver(ctx context.Context, cfg *config.Config) catalog.Archiver {
	if cfg.SnapshotBucket == "" {
		return nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("loading AWS config failed, catalog snapshots disabled")
		return nil
	}
	return archive.NewS3Archiver(s3.NewFromConfig(awsCfg), cfg.SnapshotBucket, nil)
}

// runPeriodic runs fn immediately and then on every tick until the context
// is cancelled. Cycle failures are logged; the next tick is the retry.
func runPeriodic(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("cycle", name).Msg("cycle failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
