package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/metrics"

	"cryptoindex/internal/collector"
	"cryptoindex/internal/finance"
)

// Outcome label values.
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeFetch    = "fetch"
	outcomeCanceled = "canceled"
	outcomeFailed   = "failed"
)

type instrumentedService struct {
	computations metrics.Counter
	latency      metrics.Histogram
	next         Service
}

// NewInstrumentingMiddleware counts computations and observes their latency
// in seconds, labeled by method and outcome.
func NewInstrumentingMiddleware(computations metrics.Counter, latency metrics.Histogram, next Service) Service {
	return &instrumentedService{computations: computations, latency: latency, next: next}
}

func (s *instrumentedService) Compute(ctx context.Context, req Request) (*Result, error) {
	begin := time.Now()
	res, err := s.next.Compute(ctx, req)
	lvs := []string{"method", "Compute", "outcome", outcome(err)}
	s.computations.With(lvs...).Add(1)
	s.latency.With(lvs...).Observe(time.Since(begin).Seconds())
	return res, err
}

// outcome buckets err into a small fixed set so label cardinality stays bounded.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, finance.ErrInvalidWeights):
		return outcomeInvalid
	case errors.Is(err, collector.ErrFetchFailed):
		return outcomeFetch
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrSuperseded):
		return outcomeCanceled
	default:
		return outcomeFailed
	}
}
