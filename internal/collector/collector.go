package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"cryptoindex/internal/finance"
)

// Options tune how a Collector fetches and cleans series.
type Options struct {
	// Timeout bounds each per-asset fetch. Zero means no extra bound.
	Timeout time.Duration
	// OutlierK enables the IQR outlier filter when > 0.
	OutlierK float64
	// OutlierMinPoints is the shortest series the filter is applied to.
	OutlierMinPoints int
}

// Collector fetches several assets in parallel.
type Collector struct {
	fetcher Fetcher
	opts    Options
	logger  log.Logger
}

// Result holds the series that were fetched and the per-asset failures.
type Result struct {
	Series   map[string]finance.PriceSeries
	Failures map[string]*FetchError
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options, logger log.Logger) *Collector {
	if opts.OutlierMinPoints <= 0 {
		opts.OutlierMinPoints = 20
	}
	return &Collector{fetcher: fetcher, opts: opts, logger: logger}
}

// Provider names the underlying fetcher.
func (c *Collector) Provider() string { return c.fetcher.Name() }

// Collect fetches every asset concurrently. Completion order has no effect on
// the result; each asset lands in its own slot.
func (c *Collector) Collect(ctx context.Context, assets []finance.Asset, quote string, days int) Result {
	res := Result{
		Series:   make(map[string]finance.PriceSeries, len(assets)),
		Failures: map[string]*FetchError{},
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, a := range assets {
		wg.Add(1)
		go func(a finance.Asset) {
			defer wg.Done()
			s, err := c.fetchOne(ctx, a, quote, days)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failures[a.ID] = err
				return
			}
			res.Series[a.ID] = s
		}(a)
	}
	wg.Wait()
	return res
}

func (c *Collector) fetchOne(ctx context.Context, a finance.Asset, quote string, days int) (finance.PriceSeries, *FetchError) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	begin := time.Now()
	s, err := c.fetcher.FetchHistory(ctx, a, quote, days)
	if err != nil {
		fe := asFetchError(c.fetcher.Name(), a.ID, err)
		if ctx.Err() == context.DeadlineExceeded {
			fe.Reason = ReasonNetwork
			fe.Err = fmt.Errorf("timed out after %s: %w", c.opts.Timeout, fe.Err)
		}
		_ = level.Warn(c.logger).Log("msg", "fetch failed", "provider", fe.Provider, "asset", a.ID, "reason", fe.Reason, "err", fe.Err)
		return finance.PriceSeries{}, fe
	}

	pts := finance.DropInvalid(s.Points)
	if c.opts.OutlierK > 0 {
		pts = finance.FilterIQR(pts, c.opts.OutlierK, c.opts.OutlierMinPoints)
	}
	if len(pts) == 0 {
		fe := &FetchError{Provider: c.fetcher.Name(), Asset: a.ID, Reason: ReasonMalformed,
			Err: fmt.Errorf("no usable prices among %d points", s.Len())}
		_ = level.Warn(c.logger).Log("msg", "fetch failed", "provider", fe.Provider, "asset", a.ID, "reason", fe.Reason, "err", fe.Err)
		return finance.PriceSeries{}, fe
	}
	_ = level.Debug(c.logger).Log("msg", "fetched", "provider", c.fetcher.Name(), "asset", a.ID,
		"points", len(pts), "dropped", s.Len()-len(pts), "elapsed", time.Since(begin))
	return finance.PriceSeries{Asset: a.ID, Points: pts}, nil
}
