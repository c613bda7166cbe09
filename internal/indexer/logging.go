package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"cryptoindex/internal/finance"
)

type loggingMiddleware struct {
	logger log.Logger
	svc    Service
}

func (s *loggingMiddleware) Compute(ctx context.Context, req Request) (res *Result, err error) {
	defer func(begin time.Time) {
		kv := []interface{}{
			"method", "Compute",
			"weights", len(req.Weights),
			"days", req.Days,
			"policy", req.Policy,
			"err", err,
			"elapsed", time.Since(begin),
		}
		if res != nil {
			kv = append(kv, "points", len(res.Composite.Points), "normalized", res.Normalized)
		}
		if errors.Is(err, finance.ErrMissingPricePoint) {
			kv = append(kv, "defect", true)
		}
		_ = s.wrap(err).Log(kv...)
	}(time.Now())
	return s.svc.Compute(ctx, req)
}

// Expected user errors are logged at info; anything else is an error.
func (s *loggingMiddleware) wrap(err error) log.Logger {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return level.Debug(s.logger)
	case errors.Is(err, finance.ErrInvalidWeights), errors.Is(err, ErrInvalidRequest):
		return level.Info(s.logger)
	default:
		return level.Error(s.logger)
	}
}

// NewLoggingMiddleware logs every computation at a level chosen by its
// error: debug on success, info for rejected input, error otherwise.
func NewLoggingMiddleware(logger log.Logger, svc Service) Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}
