package finance

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PriceSeries is the price history of one asset. Timestamps are strictly
// increasing and prices are finite and non-negative.
type PriceSeries struct {
	Asset  string
	Points []Point
}

// NewPriceSeries validates points and wraps them into a PriceSeries.
func NewPriceSeries(asset string, points []Point) (PriceSeries, error) {
	for i, p := range points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price < 0 {
			return PriceSeries{}, fmt.Errorf("%s: invalid price %v at %s", asset, p.Price, p.Time.Format(time.RFC3339))
		}
		if i > 0 && !p.Time.After(points[i-1].Time) {
			return PriceSeries{}, fmt.Errorf("%s: timestamps not strictly increasing at %s", asset, p.Time.Format(time.RFC3339))
		}
	}
	return PriceSeries{Asset: asset, Points: points}, nil
}

// SeriesFromRaw builds a series from provider output that may be unsorted or
// contain duplicate timestamps. Invalid prices are dropped and, for a
// duplicated timestamp, the observation that came last in the input wins.
func SeriesFromRaw(asset string, raw []Point) PriceSeries {
	pts := DropInvalid(raw)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if n := len(out); n > 0 && out[n-1].Time.Equal(p.Time) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return PriceSeries{Asset: asset, Points: out}
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// First returns the earliest observation time.
func (s PriceSeries) First() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].Time
}

// Last returns the latest observation time.
func (s PriceSeries) Last() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Time
}

// PriceAt finds the price observed exactly at t.
func (s PriceSeries) PriceAt(t time.Time) (float64, bool) {
	i := sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].Time.Before(t) })
	if i < len(s.Points) && s.Points[i].Time.Equal(t) {
		return s.Points[i].Price, true
	}
	return 0, false
}

// AsSeries converts the price history into a labeled value series.
func (s PriceSeries) AsSeries() Series {
	out := Series{Label: s.Asset, Points: make([]ValuePoint, len(s.Points))}
	for i, p := range s.Points {
		out.Points[i] = ValuePoint{Time: p.Time, Value: p.Price}
	}
	return out
}
