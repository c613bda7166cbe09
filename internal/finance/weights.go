package finance

import (
	"fmt"
	"math"
	"strings"
)

// Weights maps asset ids to fractions that sum to 1.0.
type Weights map[string]float64

// ValidateWeights checks a raw weight map against the known assets and
// normalizes it by its own sum, so 65/30/5 and 0.65/0.30/0.05 validate to
// the same result.
func ValidateWeights(raw map[string]float64, known map[string]bool) (Weights, error) {
	largest := 0.0
	for _, asset := range sortedKeys(raw) {
		w := raw[asset]
		if !known[asset] {
			return nil, &WeightError{Reason: UnknownAsset, Asset: asset, Value: w}
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, &WeightError{Reason: NegativeWeight, Asset: asset, Value: w}
		}
		largest = math.Max(largest, w)
	}
	if largest == 0 {
		return nil, &WeightError{Reason: ZeroTotal}
	}
	// Scaled weights lie in [0, 1], so their sum stays finite for any
	// finite input.
	total := 0.0
	for _, w := range raw {
		total += w / largest
	}
	out := make(Weights, len(raw))
	for asset, w := range raw {
		out[asset] = w / largest / total
	}
	return out, nil
}

// Assets returns the assets with a nonzero weight, sorted.
func (w Weights) Assets() []string {
	out := make([]string, 0, len(w))
	for _, asset := range sortedKeys(w) {
		if w[asset] != 0 {
			out = append(out, asset)
		}
	}
	return out
}

// Without returns the raw weights of every asset except the excluded ones.
// Used to re-validate after dropping assets that could not be fetched.
func (w Weights) Without(excluded map[string]bool) map[string]float64 {
	out := make(map[string]float64, len(w))
	for asset, v := range w {
		if !excluded[asset] {
			out[asset] = v
		}
	}
	return out
}

// String renders the weights as percentages, e.g. "Bitcoin 65.0%, Ethereum 35.0%".
func (w Weights) String() string {
	parts := make([]string, 0, len(w))
	for _, asset := range w.Assets() {
		parts = append(parts, fmt.Sprintf("%s %.1f%%", asset, w[asset]*100))
	}
	return strings.Join(parts, ", ")
}
