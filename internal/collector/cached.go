package collector

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"cryptoindex/internal/finance"
	"cryptoindex/internal/storage"
)

// Cache stores raw fetched price series.
type Cache interface {
	LoadSeries(ctx context.Context, key storage.SeriesKey, maxAge time.Duration) ([]finance.Point, bool, error)
	SaveSeries(ctx context.Context, key storage.SeriesKey, points []finance.Point) error
}

type cachedFetcher struct {
	next   Fetcher
	cache  Cache
	ttl    time.Duration
	logger log.Logger
}

// NewCachedFetcher puts a read-through cache in front of next. A zero ttl or
// nil cache returns next unchanged. Cache failures are logged and bypassed.
func NewCachedFetcher(next Fetcher, cache Cache, ttl time.Duration, logger log.Logger) Fetcher {
	if cache == nil || ttl <= 0 {
		return next
	}
	return &cachedFetcher{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (f *cachedFetcher) Name() string { return f.next.Name() }

func (f *cachedFetcher) FetchHistory(ctx context.Context, asset finance.Asset, quote string, days int) (finance.PriceSeries, error) {
	key := storage.SeriesKey{Provider: f.next.Name(), Quote: quote, Asset: asset.ID, Days: days}
	pts, ok, err := f.cache.LoadSeries(ctx, key, f.ttl)
	if err != nil {
		_ = level.Warn(f.logger).Log("msg", "price cache read failed", "asset", asset.ID, "err", err)
	} else if ok {
		_ = level.Debug(f.logger).Log("msg", "price cache hit", "asset", asset.ID, "points", len(pts))
		return finance.SeriesFromRaw(asset.ID, pts), nil
	}

	s, err := f.next.FetchHistory(ctx, asset, quote, days)
	if err != nil {
		return s, err
	}
	if s.Len() > 0 {
		if err := f.cache.SaveSeries(ctx, key, s.Points); err != nil {
			_ = level.Warn(f.logger).Log("msg", "price cache write failed", "asset", asset.ID, "err", err)
		}
	}
	return s, nil
}
