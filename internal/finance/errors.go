package finance

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientData means alignment had nothing to work with: an empty
	// series, no series at all, or no overlapping timestamps.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidWeights is returned when a weight map fails validation.
	ErrInvalidWeights = errors.New("invalid weights")
	// ErrDegenerateSeries means a series cannot be normalized because its base is zero.
	ErrDegenerateSeries = errors.New("degenerate series")
	// ErrMissingPricePoint is an internal consistency failure between the
	// aligner and the index calculator. It always indicates a bug.
	ErrMissingPricePoint = errors.New("missing price point")
)

// WeightReason classifies a weight validation failure.
type WeightReason string

const (
	UnknownAsset   WeightReason = "unknown asset"
	NegativeWeight WeightReason = "negative weight"
	ZeroTotal      WeightReason = "zero total"
)

// WeightError describes which asset made a weight map invalid.
type WeightError struct {
	Reason WeightReason
	Asset  string
	Value  float64
}

func (e *WeightError) Error() string {
	switch e.Reason {
	case UnknownAsset:
		return fmt.Sprintf("invalid weights: unknown asset %q", e.Asset)
	case NegativeWeight:
		return fmt.Sprintf("invalid weights: weight %v for %s must be a finite number >= 0", e.Value, e.Asset)
	default:
		return "invalid weights: weights sum to zero"
	}
}

func (e *WeightError) Unwrap() error { return ErrInvalidWeights }

// DataError reports missing or non-overlapping data, naming the asset when one is at fault.
type DataError struct {
	Asset  string
	Reason string
}

func (e *DataError) Error() string {
	if e.Asset == "" {
		return "insufficient data: " + e.Reason
	}
	return fmt.Sprintf("insufficient data for %s: %s", e.Asset, e.Reason)
}

func (e *DataError) Unwrap() error { return ErrInsufficientData }

// DegenerateError reports a zero normalization base.
type DegenerateError struct {
	Time time.Time
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("degenerate series: value at %s is zero, cannot normalize", e.Time.Format("2006-01-02 15:04"))
}

func (e *DegenerateError) Unwrap() error { return ErrDegenerateSeries }

// MissingPriceError reports a grid timestamp with no price for a weighted asset.
type MissingPriceError struct {
	Asset string
	Time  time.Time
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("missing price point: %s has no price at %s", e.Asset, e.Time.UTC().Format(time.RFC3339))
}

func (e *MissingPriceError) Unwrap() error { return ErrMissingPricePoint }
