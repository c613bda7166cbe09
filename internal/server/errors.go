package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"cryptoindex/internal/collector"
	"cryptoindex/internal/finance"
	"cryptoindex/internal/indexer"
)

const msgInternal = "internal error while computing the index"

// errorProcessor maps computation errors to HTTP responses.
type errorProcessor struct {
	logger log.Logger
}

func newErrorProcessor(logger log.Logger) *errorProcessor {
	return &errorProcessor{logger: logger}
}

// Encode writes err as a JSON error body. Internal defects are logged and
// answered with a generic message.
func (p *errorProcessor) Encode(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	body := errorResponse{Error: err.Error()}
	var re *indexer.RequestError
	if errors.As(err, &re) {
		body.Field = re.Field
	}
	if status == http.StatusInternalServerError {
		_ = level.Error(p.logger).Log("msg", "index request failed", "path", r.URL.Path, "query", r.URL.RawQuery, "err", err)
		body = errorResponse{Error: msgInternal}
	}
	writeJSON(w, status, body)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, finance.ErrInvalidWeights), errors.Is(err, indexer.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, finance.ErrMissingPricePoint):
		return http.StatusInternalServerError
	case errors.Is(err, finance.ErrInsufficientData), errors.Is(err, collector.ErrFetchFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, indexer.ErrSuperseded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
