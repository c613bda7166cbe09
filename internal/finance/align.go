package finance

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Policy selects how series on different timestamp grids are reconciled.
type Policy int

const (
	// PolicyIntersection keeps only timestamps present in every series.
	PolicyIntersection Policy = iota
	// PolicyCalendarDay reduces each series to the last observation of each
	// UTC calendar day before intersecting.
	PolicyCalendarDay
	// PolicyForwardFill uses the union of timestamps from the latest first
	// observation onward and carries each asset's last price into gaps.
	PolicyForwardFill
)

func (p Policy) String() string {
	switch p {
	case PolicyIntersection:
		return "intersection"
	case PolicyCalendarDay:
		return "calendar-day"
	case PolicyForwardFill:
		return "forward-fill"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration or query value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "intersection", "intersect":
		return PolicyIntersection, nil
	case "calendar-day", "calendar", "daily", "day", "":
		return PolicyCalendarDay, nil
	case "forward-fill", "ffill":
		return PolicyForwardFill, nil
	}
	return 0, fmt.Errorf("unknown alignment policy %q (use intersection, calendar-day or forward-fill)", s)
}

// AlignedGrid is the common timestamp grid and the per-asset series it was
// derived from. Under PolicyCalendarDay and PolicyForwardFill the series are
// the resampled or filled versions, so every grid timestamp resolves in them.
type AlignedGrid struct {
	Policy Policy
	Times  []time.Time
	Series map[string]PriceSeries
}

// Len returns the number of grid timestamps.
func (g *AlignedGrid) Len() int { return len(g.Times) }

// Align computes the common grid across series under the given policy.
// An empty input series, or an empty resulting grid, fails with ErrInsufficientData.
func Align(series map[string]PriceSeries, policy Policy) (*AlignedGrid, error) {
	if len(series) == 0 {
		return nil, &DataError{Reason: "no series provided"}
	}
	for _, asset := range sortedKeys(series) {
		if series[asset].Len() == 0 {
			return nil, &DataError{Asset: asset, Reason: "price series is empty"}
		}
	}

	var (
		work map[string]PriceSeries
		grid []time.Time
	)
	switch policy {
	case PolicyIntersection:
		work = series
		grid = intersect(work)
	case PolicyCalendarDay:
		work = make(map[string]PriceSeries, len(series))
		for asset, s := range series {
			work[asset] = ResampleDaily(s)
		}
		grid = intersect(work)
	case PolicyForwardFill:
		work, grid = forwardFill(series)
	default:
		return nil, fmt.Errorf("align: unsupported policy %v", policy)
	}

	if len(grid) == 0 {
		return nil, &DataError{Reason: fmt.Sprintf("no overlapping timestamps across %s", strings.Join(sortedKeys(series), ", "))}
	}
	return &AlignedGrid{Policy: policy, Times: grid, Series: work}, nil
}

// ResampleDaily keeps one observation per UTC calendar day, the
// chronologically last one, stamped at 00:00 UTC of that day.
func ResampleDaily(s PriceSeries) PriceSeries {
	out := PriceSeries{Asset: s.Asset, Points: make([]Point, 0, len(s.Points))}
	for _, p := range s.Points {
		day := truncateDay(p.Time)
		if n := len(out.Points); n > 0 && out.Points[n-1].Time.Equal(day) {
			out.Points[n-1].Price = p.Price
			continue
		}
		out.Points = append(out.Points, Point{Time: day, Price: p.Price})
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// intersect counts each timestamp across series and keeps those seen in all of them.
func intersect(series map[string]PriceSeries) []time.Time {
	count := map[int64]int{}
	for _, s := range series {
		for _, p := range s.Points {
			count[p.Time.UnixNano()]++
		}
	}
	common := make([]int64, 0, len(count))
	for ts, c := range count {
		if c == len(series) {
			common = append(common, ts)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })
	out := make([]time.Time, len(common))
	for i, ts := range common {
		out[i] = time.Unix(0, ts).UTC()
	}
	return out
}

// forwardFill builds the union grid starting at the latest first observation,
// so every asset has a real price to carry forward from the first grid point.
func forwardFill(series map[string]PriceSeries) (map[string]PriceSeries, []time.Time) {
	var start time.Time
	for _, s := range series {
		if s.First().After(start) {
			start = s.First()
		}
	}
	seen := map[int64]bool{}
	var union []int64
	for _, s := range series {
		for _, p := range s.Points {
			if p.Time.Before(start) {
				continue
			}
			ts := p.Time.UnixNano()
			if !seen[ts] {
				seen[ts] = true
				union = append(union, ts)
			}
		}
	}
	sort.Slice(union, func(i, j int) bool { return union[i] < union[j] })
	grid := make([]time.Time, len(union))
	for i, ts := range union {
		grid[i] = time.Unix(0, ts).UTC()
	}

	filled := make(map[string]PriceSeries, len(series))
	for asset, s := range series {
		pts := make([]Point, 0, len(grid))
		j := 0
		last := 0.0
		for _, t := range grid {
			for j < len(s.Points) && !s.Points[j].Time.After(t) {
				last = s.Points[j].Price
				j++
			}
			pts = append(pts, Point{Time: t, Price: last})
		}
		filled[asset] = PriceSeries{Asset: asset, Points: pts}
	}
	return filled, grid
}
