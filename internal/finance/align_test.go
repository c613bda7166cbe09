package finance

import (
	"errors"
	"testing"
	"time"
)

func TestAlign_Intersection(t *testing.T) {
	series := map[string]PriceSeries{
		"A": mustSeries(t, "A", Point{d1, 10}, Point{d2, 20}),
		"B": mustSeries(t, "B", Point{d2, 5}, Point{d3, 6}),
	}
	grid, err := Align(series, PolicyIntersection)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(grid.Times) != 1 || !grid.Times[0].Equal(d2) {
		t.Fatalf("grid = %v, want [%s]", grid.Times, d2)
	}
}

func TestAlign_NoOverlap(t *testing.T) {
	series := map[string]PriceSeries{
		"A": mustSeries(t, "A", Point{d1, 10}),
		"B": mustSeries(t, "B", Point{d3, 6}),
	}
	_, err := Align(series, PolicyIntersection)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestAlign_EmptySeriesNamesAsset(t *testing.T) {
	series := map[string]PriceSeries{
		"A": mustSeries(t, "A", Point{d1, 10}),
		"B": {Asset: "B"},
	}
	_, err := Align(series, PolicyCalendarDay)
	var de *DataError
	if !errors.As(err, &de) || de.Asset != "B" {
		t.Fatalf("err = %v, want DataError for B", err)
	}
	if _, err := Align(nil, PolicyIntersection); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("nil input: err = %v, want ErrInsufficientData", err)
	}
}

func TestAlign_CalendarDayKeepsLastObservation(t *testing.T) {
	// Intraday samples on different clocks for each asset.
	a := mustSeries(t, "A",
		Point{d1.Add(1 * time.Hour), 1},
		Point{d1.Add(23 * time.Hour), 2},
		Point{d2.Add(5 * time.Hour), 3},
	)
	b := mustSeries(t, "B",
		Point{d1.Add(30 * time.Minute), 10},
		Point{d2.Add(2 * time.Hour), 20},
		Point{d2.Add(22 * time.Hour), 30},
		Point{d3.Add(1 * time.Hour), 40},
	)
	grid, err := Align(map[string]PriceSeries{"A": a, "B": b}, PolicyCalendarDay)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(grid.Times) != 2 || !grid.Times[0].Equal(d1) || !grid.Times[1].Equal(d2) {
		t.Fatalf("grid = %v, want [%s %s]", grid.Times, d1, d2)
	}
	tests := []struct {
		asset string
		at    time.Time
		want  float64
	}{
		{"A", d1, 2},
		{"A", d2, 3},
		{"B", d1, 10},
		{"B", d2, 30},
	}
	for _, tt := range tests {
		got, ok := grid.Series[tt.asset].PriceAt(tt.at)
		if !ok || got != tt.want {
			t.Errorf("%s at %s = %v (%v), want %v", tt.asset, tt.at, got, ok, tt.want)
		}
	}
}

func TestAlign_ForwardFill(t *testing.T) {
	a := mustSeries(t, "A", Point{d1, 1}, Point{d2, 2}, Point{d3, 3})
	b := mustSeries(t, "B", Point{d2, 20})
	grid, err := Align(map[string]PriceSeries{"A": a, "B": b}, PolicyForwardFill)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	// Starts at B's first observation; nothing is filled before it.
	if len(grid.Times) != 2 || !grid.Times[0].Equal(d2) || !grid.Times[1].Equal(d3) {
		t.Fatalf("grid = %v, want [%s %s]", grid.Times, d2, d3)
	}
	if p, _ := grid.Series["B"].PriceAt(d3); p != 20 {
		t.Errorf("B at d3 = %v, want forward-filled 20", p)
	}
	if p, _ := grid.Series["A"].PriceAt(d3); p != 3 {
		t.Errorf("A at d3 = %v, want 3", p)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"intersection", PolicyIntersection, false},
		{"Calendar-Day", PolicyCalendarDay, false},
		{"", PolicyCalendarDay, false},
		{"ffill", PolicyForwardFill, false},
		{"union", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSeriesFromRaw(t *testing.T) {
	s := SeriesFromRaw("A", []Point{{d2, 2}, {d1, 1}, {d2, 2.5}, {d3, -1}})
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	if p, _ := s.PriceAt(d2); p != 2.5 {
		t.Errorf("duplicate timestamp kept %v, want last observation 2.5", p)
	}
	if _, err := NewPriceSeries("A", s.Points); err != nil {
		t.Errorf("result does not satisfy series invariants: %v", err)
	}
}

func TestNewPriceSeries_RejectsUnordered(t *testing.T) {
	if _, err := NewPriceSeries("A", []Point{{d2, 1}, {d1, 2}}); err == nil {
		t.Error("expected error for decreasing timestamps")
	}
	if _, err := NewPriceSeries("A", []Point{{d1, 1}, {d1, 2}}); err == nil {
		t.Error("expected error for duplicate timestamps")
	}
	if _, err := NewPriceSeries("A", []Point{{d1, -1}}); err == nil {
		t.Error("expected error for negative price")
	}
}
