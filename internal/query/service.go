// Package query serves id- and geo-bounded observation queries through a
// cache-aside layer in front of the record store.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metarwatch/metarwatch/internal/cache"
	"github.com/metarwatch/metarwatch/internal/models"
	"github.com/metarwatch/metarwatch/internal/observability"
	"github.com/metarwatch/metarwatch/internal/store"
)

// Service answers read queries cache-first. The cache holds no state beyond
// pooled connections, so concurrent queries interleave freely. Concurrent
// misses on one key may each hit the store and overwrite the entry with
// equivalent data; that race is benign and left un-deduplicated.
type Service struct {
	store   store.RecordStore
	cache   cache.QueryCache
	metrics *observability.Metrics
}

func NewService(recordStore store.RecordStore, queryCache cache.QueryCache, metrics *observability.Metrics) *Service {
	return &Service{
		store:   recordStore,
		cache:   queryCache,
		metrics: metrics,
	}
}

// IDQuery returns observations for one station within [start, end].
func (s *Service) IDQuery(ctx context.Context, icao string, start, end int64) ([]models.Observation, error) {
	key := cache.IDKey(icao, start, end)
	return s.lookup(ctx, "id", key, func(ctx context.Context) ([]models.Observation, error) {
		return s.store.IDQuery(ctx, icao, start, end)
	})
}

// GeoQuery returns observations for stations within radiusMeters of
// (lat, lon) and within [start, end]. The cache key coarsens the
// coordinates; the store query keeps full precision.
func (s *Service) GeoQuery(ctx context.Context, lat, lon float64, radiusMeters int, start, end int64) ([]models.Observation, error) {
	key := cache.GeoKey(lat, lon, radiusMeters, start, end)
	return s.lookup(ctx, "geo", key, func(ctx context.Context) ([]models.Observation, error) {
		return s.store.GeoQuery(ctx, lat, lon, radiusMeters, start, end)
	})
}

func (s *Service) lookup(ctx context.Context, kind, key string, fetch func(context.Context) ([]models.Observation, error)) ([]models.Observation, error) {
	timer := time.Now()
	defer func() {
		s.metrics.QueryDuration.WithLabelValues(kind).Observe(time.Since(timer).Seconds())
	}()

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		// An unreachable cache degrades to store-only service.
		log.Warn().Err(err).Str("key", key).Msg("cache get failed, falling through to store")
	}
	if ok {
		s.metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
		log.Debug().Str("key", key).Msg("cache hit")
		return cached, nil
	}
	s.metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()

	result, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying store: %w", err)
	}

	// Empty results are never cached; a station that starts reporting
	// should become visible without waiting out a TTL.
	if len(result) > 0 {
		if err := s.cache.Set(ctx, key, result); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return result, nil
}
