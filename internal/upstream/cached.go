package upstream

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/freema/docsgate/internal/logger"
	"github.com/freema/docsgate/internal/metrics"
)

// CachedSource puts a Cache in front of a Source. Concurrent misses for
// the same URL share one upstream fetch. Failed fetches are not cached.
type CachedSource struct {
	source Source
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
}

// NewCachedSource wraps source with cache.
func NewCachedSource(source Source, cache Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, cache: cache, ttl: ttl}
}

func (s *CachedSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := cacheKey(url)
	log := logger.FromContext(ctx)

	body, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.SpecCache.WithLabelValues(s.cache.Name(), "error").Inc()
		log.Warn("spec cache read failed", "backend", s.cache.Name(), "error", err)
	case ok:
		metrics.SpecCache.WithLabelValues(s.cache.Name(), "hit").Inc()
		return body, nil
	default:
		metrics.SpecCache.WithLabelValues(s.cache.Name(), "miss").Inc()
	}

	// The shared fetch outlives any single caller. The fetcher's client
	// timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		body, err := s.source.Fetch(fetchCtx, url)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(fetchCtx, key, body, s.ttl); err != nil {
			log.Warn("spec cache write failed", "backend", s.cache.Name(), "error", err)
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Ping checks the cache backend.
func (s *CachedSource) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

var _ Source = (*CachedSource)(nil)
