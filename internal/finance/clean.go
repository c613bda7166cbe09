package finance

import (
	"math"
	"sort"
)

// DropInvalid removes points whose price is negative, NaN or infinite.
func DropInvalid(points []Point) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterIQR removes outliers using the interquartile range rule.
// Any point with price outside [Q1 - k*IQR, Q3 + k*IQR] is dropped.
// Short series (< minPoints) are returned unchanged, and so is the input when
// filtering would leave fewer than minPoints/2 points.
func FilterIQR(points []Point, k float64, minPoints int) []Point {
	if len(points) < minPoints || k <= 0 {
		return points
	}
	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Price
	}
	sort.Float64s(vals)
	percentile := func(p float64) float64 {
		pos := p * float64(len(vals)-1)
		lo := int(pos)
		hi := lo + 1
		if hi >= len(vals) {
			return vals[lo]
		}
		frac := pos - float64(lo)
		return vals[lo]*(1-frac) + vals[hi]*frac
	}
	q1 := percentile(0.25)
	q3 := percentile(0.75)
	iqr := q3 - q1
	if iqr <= 0 {
		return points
	}
	lower := q1 - k*iqr
	upper := q3 + k*iqr
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Price < lower || p.Price > upper {
			continue
		}
		out = append(out, p)
	}
	if len(out) < minPoints/2 {
		return points
	}
	return out
}
