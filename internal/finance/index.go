package finance

import (
	"math"
)

// IndexLabel is the label of a composite series.
const IndexLabel = "Crypto Index"

// Compute produces the weighted composite value at every grid timestamp:
// the sum of weight * price over the weighted assets. When normalizeTo > 0
// the result is rescaled so it starts at exactly normalizeTo; otherwise the
// raw weighted values are returned.
//
// A weighted asset with no price at a grid timestamp is a MissingPricePoint
// defect: the grid was not built from these series.
func Compute(grid *AlignedGrid, series map[string]PriceSeries, w Weights, normalizeTo float64) (Series, error) {
	if grid == nil || grid.Len() == 0 {
		return Series{}, &DataError{Reason: "aligned grid is empty"}
	}
	assets := w.Assets()
	out := Series{Label: IndexLabel, Points: make([]ValuePoint, 0, grid.Len())}
	for _, t := range grid.Times {
		total := 0.0
		for _, asset := range assets {
			s, ok := series[asset]
			if !ok {
				return Series{}, &MissingPriceError{Asset: asset, Time: t}
			}
			price, ok := s.PriceAt(t)
			if !ok {
				return Series{}, &MissingPriceError{Asset: asset, Time: t}
			}
			total += w[asset] * price
		}
		out.Points = append(out.Points, ValuePoint{Time: t, Value: total})
	}
	if normalizeTo <= 0 {
		return out, nil
	}
	return Normalize(out, normalizeTo)
}

// Normalize rescales s so its first value equals target.
func Normalize(s Series, target float64) (Series, error) {
	if len(s.Points) == 0 {
		return Series{}, &DataError{Asset: s.Label, Reason: "cannot normalize an empty series"}
	}
	base := s.Points[0].Value
	if base == 0 || math.IsNaN(base) {
		return Series{}, &DegenerateError{Time: s.Points[0].Time}
	}
	factor := target / base
	out := Series{Label: s.Label, Points: make([]ValuePoint, len(s.Points))}
	for i, p := range s.Points {
		out.Points[i] = ValuePoint{Time: p.Time, Value: p.Value * factor}
	}
	out.Points[0].Value = target
	return out, nil
}
