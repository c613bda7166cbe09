// Package indexer turns a weight request into a composite index, its
// fixed-rate baseline and summary statistics.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"cryptoindex/internal/collector"
	"cryptoindex/internal/finance"
)

// Service computes indices.
type Service interface {
	Compute(ctx context.Context, req Request) (*Result, error)
}

// Collector is the subset of collector.Collector the service needs.
type Collector interface {
	Collect(ctx context.Context, assets []finance.Asset, quote string, days int) collector.Result
	Provider() string
}

// Request describes one index computation. Weights may use aliases and any
// positive scale.
type Request struct {
	Weights      map[string]float64
	Days         int
	Policy       finance.Policy
	AnnualRate   float64
	NormalizeTo  float64
	Quote        string
	AllowPartial bool
}

// Validate checks the non-weight parameters.
func (r Request) Validate() error {
	switch {
	case r.Days <= 0:
		return &RequestError{Field: "days", Msg: fmt.Sprintf("lookback must be at least 1 day, got %d", r.Days)}
	case r.Days > 3650:
		return &RequestError{Field: "days", Msg: fmt.Sprintf("lookback of %d days exceeds 3650", r.Days)}
	case math.IsNaN(r.AnnualRate) || math.IsInf(r.AnnualRate, 0):
		return &RequestError{Field: "rate", Msg: fmt.Sprintf("annual rate %v is not a finite number", r.AnnualRate)}
	case r.AnnualRate <= -1:
		return &RequestError{Field: "rate", Msg: fmt.Sprintf("annual rate %v must be greater than -1", r.AnnualRate)}
	case math.IsNaN(r.NormalizeTo) || math.IsInf(r.NormalizeTo, 0):
		return &RequestError{Field: "normalize", Msg: fmt.Sprintf("normalization target %v is not a finite number", r.NormalizeTo)}
	case r.Quote == "":
		return &RequestError{Field: "quote", Msg: "quote currency is empty"}
	}
	return nil
}

// Result is a computed index.
type Result struct {
	Weights   finance.Weights
	Composite finance.Series
	Baseline  finance.Series
	// Constituents are the weighted assets on the index grid, normalized to
	// the same target. Empty when the index is not normalized.
	Constituents []finance.Series
	Stats        *finance.Stats
	Policy       finance.Policy
	// Normalized is false when normalization was requested but the first
	// composite value was zero, so raw values are returned instead.
	Normalized bool
	Dropped    map[string]*collector.FetchError
	Provider   string
	Quote      string
	Days       int
	AnnualRate float64
}

type service struct {
	universe  *finance.Universe
	collector Collector
	logger    log.Logger
}

// NewService creates the index service.
func NewService(universe *finance.Universe, c Collector, logger log.Logger) Service {
	return &service{universe: universe, collector: c, logger: logger}
}

func (s *service) Compute(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	known := s.universe.Known()
	w, err := finance.ValidateWeights(s.universe.Canonicalize(req.Weights), known)
	if err != nil {
		return nil, err
	}

	assets := make([]finance.Asset, 0, len(w))
	for _, id := range w.Assets() {
		a, _ := s.universe.Resolve(id)
		assets = append(assets, a)
	}

	collected := s.collector.Collect(ctx, assets, req.Quote, req.Days)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var dropped map[string]*collector.FetchError
	if len(collected.Failures) > 0 {
		if !req.AllowPartial || len(collected.Failures) == len(assets) {
			return nil, &FetchFailures{Failures: collected.Failures}
		}
		excluded := make(map[string]bool, len(collected.Failures))
		for id := range collected.Failures {
			excluded[id] = true
		}
		if w, err = finance.ValidateWeights(w.Without(excluded), known); err != nil {
			return nil, &FetchFailures{Failures: collected.Failures}
		}
		dropped = collected.Failures
		_ = level.Warn(s.logger).Log("msg", "continuing without failed assets", "dropped", len(dropped), "weights", w.String())
	}

	series := make(map[string]finance.PriceSeries, len(w))
	for _, id := range w.Assets() {
		series[id] = collected.Series[id]
	}
	grid, err := finance.Align(series, req.Policy)
	if err != nil {
		return nil, err
	}

	normalized := req.NormalizeTo > 0
	composite, err := finance.Compute(grid, grid.Series, w, req.NormalizeTo)
	if errors.Is(err, finance.ErrDegenerateSeries) {
		_ = level.Warn(s.logger).Log("msg", "composite starts at zero, returning raw values", "err", err)
		normalized = false
		composite, err = finance.Compute(grid, grid.Series, w, 0)
	}
	if err != nil {
		return nil, err
	}

	first := composite.Points[0]
	baseline, err := finance.Project(first.Time, first.Value, req.AnnualRate, finance.SpanDays(grid.Times))
	if err != nil {
		return nil, &RequestError{Field: "rate", Msg: err.Error()}
	}

	res := &Result{
		Weights:    w,
		Composite:  composite,
		Baseline:   baseline,
		Policy:     req.Policy,
		Normalized: normalized,
		Dropped:    dropped,
		Provider:   s.collector.Provider(),
		Quote:      req.Quote,
		Days:       req.Days,
		AnnualRate: req.AnnualRate,
	}
	if len(composite.Points) >= 3 {
		if st, err := finance.ComputeStats(composite); err == nil {
			res.Stats = st
		} else {
			_ = level.Debug(s.logger).Log("msg", "statistics unavailable", "err", err)
		}
	}
	if normalized {
		res.Constituents = constituents(grid, w, req.NormalizeTo)
	}
	return res, nil
}

// constituents samples each weighted asset on the grid and normalizes it.
// Assets that start at zero are left out.
func constituents(grid *finance.AlignedGrid, w finance.Weights, target float64) []finance.Series {
	out := make([]finance.Series, 0, len(w))
	for _, id := range w.Assets() {
		ps := grid.Series[id]
		s := finance.Series{Label: id, Points: make([]finance.ValuePoint, 0, grid.Len())}
		for _, t := range grid.Times {
			if p, ok := ps.PriceAt(t); ok {
				s.Points = append(s.Points, finance.ValuePoint{Time: t, Value: p})
			}
		}
		if n, err := finance.Normalize(s, target); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// Defaults hold the configured request parameters.
type Defaults struct {
	Weights      map[string]float64
	Days         int
	Policy       finance.Policy
	AnnualRate   float64
	NormalizeTo  float64
	Quote        string
	AllowPartial bool
}

// Request returns a request populated with the defaults.
func (d Defaults) Request() Request {
	weights := make(map[string]float64, len(d.Weights))
	for k, v := range d.Weights {
		weights[k] = v
	}
	return Request{
		Weights:      weights,
		Days:         d.Days,
		Policy:       d.Policy,
		AnnualRate:   d.AnnualRate,
		NormalizeTo:  d.NormalizeTo,
		Quote:        d.Quote,
		AllowPartial: d.AllowPartial,
	}
}
