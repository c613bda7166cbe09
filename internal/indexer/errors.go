package indexer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"cryptoindex/internal/collector"
	"cryptoindex/internal/finance"
)

var (
	// ErrInvalidRequest covers bad lookback, rate or quote parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSuperseded is returned to a caller whose request was replaced by a newer one.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// RequestError names the offending request parameter.
type RequestError struct {
	Field string
	Msg   string
}

func (e *RequestError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg) }

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

// FetchFailures aggregates per-asset fetch failures that aborted a computation.
type FetchFailures struct {
	Failures map[string]*collector.FetchError
}

func (e *FetchFailures) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s (%s)", id, e.Failures[id].Reason)
	}
	return "could not fetch prices for " + strings.Join(parts, ", ")
}

func (e *FetchFailures) Unwrap() []error {
	return []error{finance.ErrInsufficientData, collector.ErrFetchFailed}
}
