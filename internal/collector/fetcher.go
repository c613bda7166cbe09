package collector

import (
	"context"
	"errors"
	"fmt"

	"cryptoindex/internal/finance"
)

// ErrFetchFailed is matched by every error a Fetcher returns.
var ErrFetchFailed = errors.New("fetch failed")

// Reason classifies a failed fetch.
type Reason string

const (
	ReasonNetwork   Reason = "network"
	ReasonRateLimit Reason = "rate-limit"
	ReasonMalformed Reason = "malformed"
)

// Fetcher retrieves the price history of one asset over a trailing window.
type Fetcher interface {
	FetchHistory(ctx context.Context, asset finance.Asset, quote string, days int) (finance.PriceSeries, error)
	Name() string
}

// FetchError describes why a provider could not deliver an asset's history.
type FetchError struct {
	Provider string
	Asset    string
	Reason   Reason
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: fetch %s failed (%s)", e.Provider, e.Asset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Err}
}

// asFetchError attaches provider and asset to err, classifying anything that
// is not already a FetchError as a network failure.
func asFetchError(provider, asset string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		out := *fe
		if out.Provider == "" {
			out.Provider = provider
		}
		if out.Asset == "" {
			out.Asset = asset
		}
		return &out
	}
	return &FetchError{Provider: provider, Asset: asset, Reason: ReasonNetwork, Err: err}
}
