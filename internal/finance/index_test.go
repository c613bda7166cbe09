package finance

import (
	"errors"
	"math"
	"testing"
	"time"
)

var (
	d1 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 = d1.AddDate(0, 0, 1)
	d3 = d1.AddDate(0, 0, 2)
)

func mustSeries(t *testing.T, asset string, pts ...Point) PriceSeries {
	t.Helper()
	s, err := NewPriceSeries(asset, pts)
	if err != nil {
		t.Fatalf("NewPriceSeries(%s): %v", asset, err)
	}
	return s
}

func TestCompute_EndToEndExample(t *testing.T) {
	series := map[string]PriceSeries{
		"BTC": mustSeries(t, "BTC", Point{d1, 100}, Point{d2, 200}),
		"ETH": mustSeries(t, "ETH", Point{d1, 10}, Point{d2, 10}),
	}
	w, err := ValidateWeights(map[string]float64{"BTC": 0.6, "ETH": 0.4}, map[string]bool{"BTC": true, "ETH": true})
	if err != nil {
		t.Fatalf("ValidateWeights: %v", err)
	}
	grid, err := Align(series, PolicyIntersection)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	raw, err := Compute(grid, grid.Series, w, 0)
	if err != nil {
		t.Fatalf("Compute raw: %v", err)
	}
	wantRaw := []float64{64, 124}
	for i, v := range raw.Values() {
		if math.Abs(v-wantRaw[i]) > 1e-9 {
			t.Errorf("raw[%d] = %v, want %v", i, v, wantRaw[i])
		}
	}

	norm, err := Compute(grid, grid.Series, w, 100)
	if err != nil {
		t.Fatalf("Compute normalized: %v", err)
	}
	wantNorm := []float64{100, 193.75}
	for i, v := range norm.Values() {
		if math.Abs(v-wantNorm[i]) > 1e-9 {
			t.Errorf("normalized[%d] = %v, want %v", i, v, wantNorm[i])
		}
	}
	if norm.Label != IndexLabel {
		t.Errorf("label = %q, want %q", norm.Label, IndexLabel)
	}
}

func TestCompute_SingleAssetIdentity(t *testing.T) {
	btc := mustSeries(t, "BTC", Point{d1, 42123.17}, Point{d2, 43001.9}, Point{d3, 39999.99})
	series := map[string]PriceSeries{"BTC": btc}
	grid, err := Align(series, PolicyIntersection)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	out, err := Compute(grid, series, Weights{"BTC": 1.0}, 0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(out.Points) != btc.Len() {
		t.Fatalf("got %d points, want %d", len(out.Points), btc.Len())
	}
	for i, p := range out.Points {
		if p.Value != btc.Points[i].Price || !p.Time.Equal(btc.Points[i].Time) {
			t.Errorf("point %d = %+v, want %+v", i, p, btc.Points[i])
		}
	}
}

func TestCompute_MissingPricePoint(t *testing.T) {
	grid := &AlignedGrid{Times: []time.Time{d1, d2}}
	series := map[string]PriceSeries{
		"BTC": mustSeries(t, "BTC", Point{d1, 100}, Point{d2, 110}),
		"ETH": mustSeries(t, "ETH", Point{d1, 10}),
	}
	_, err := Compute(grid, series, Weights{"BTC": 0.5, "ETH": 0.5}, 100)
	if !errors.Is(err, ErrMissingPricePoint) {
		t.Fatalf("err = %v, want ErrMissingPricePoint", err)
	}
	var mp *MissingPriceError
	if !errors.As(err, &mp) || mp.Asset != "ETH" || !mp.Time.Equal(d2) {
		t.Errorf("err = %#v, want ETH at %s", err, d2)
	}
}

func TestCompute_ZeroWeightAssetNotLookedUp(t *testing.T) {
	grid := &AlignedGrid{Times: []time.Time{d1, d2}}
	series := map[string]PriceSeries{
		"BTC": mustSeries(t, "BTC", Point{d1, 100}, Point{d2, 110}),
		"LTC": mustSeries(t, "LTC", Point{d1, 1}),
	}
	if _, err := Compute(grid, series, Weights{"BTC": 1, "LTC": 0}, 0); err != nil {
		t.Fatalf("Compute: %v", err)
	}
}

func TestCompute_DegenerateSeries(t *testing.T) {
	series := map[string]PriceSeries{
		"BTC": mustSeries(t, "BTC", Point{d1, 0}, Point{d2, 5}),
	}
	grid, err := Align(series, PolicyIntersection)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	_, err = Compute(grid, series, Weights{"BTC": 1}, 100)
	if !errors.Is(err, ErrDegenerateSeries) {
		t.Fatalf("err = %v, want ErrDegenerateSeries", err)
	}
	raw, err := Compute(grid, series, Weights{"BTC": 1}, 0)
	if err != nil {
		t.Fatalf("raw fallback: %v", err)
	}
	if raw.Points[1].Value != 5 {
		t.Errorf("raw[1] = %v, want 5", raw.Points[1].Value)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	s := Series{Label: "x", Points: []ValuePoint{{d1, 37}, {d2, 41.5}, {d3, 12.25}}}
	once, err := Normalize(s, 100)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	twice, err := Normalize(once, 100)
	if err != nil {
		t.Fatalf("Normalize again: %v", err)
	}
	for i := range once.Points {
		if once.Points[i] != twice.Points[i] {
			t.Errorf("point %d changed: %+v -> %+v", i, once.Points[i], twice.Points[i])
		}
	}
	if once.Points[0].Value != 100 {
		t.Errorf("first value = %v, want 100", once.Points[0].Value)
	}
}

func TestCompute_EmptyGrid(t *testing.T) {
	_, err := Compute(&AlignedGrid{}, nil, Weights{"BTC": 1}, 100)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}
