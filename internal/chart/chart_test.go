package chart

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"cryptoindex/internal/collector"
	"cryptoindex/internal/finance"
	"cryptoindex/internal/indexer"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testResult(t *testing.T) *indexer.Result {
	t.Helper()
	composite := finance.Series{Label: finance.IndexLabel}
	for i, v := range []float64{100, 104, 98, 110, 121.5} {
		composite.Points = append(composite.Points, finance.ValuePoint{Time: t0.AddDate(0, 0, i), Value: v})
	}
	baseline, err := finance.Project(t0, 100, 0.15, 4)
	if err != nil {
		t.Fatal(err)
	}
	st, err := finance.ComputeStats(composite)
	if err != nil {
		t.Fatal(err)
	}
	return &indexer.Result{
		Weights:    finance.Weights{"Bitcoin": 0.65, "Ethereum": 0.35},
		Composite:  composite,
		Baseline:   baseline,
		Stats:      st,
		Policy:     finance.PolicyCalendarDay,
		Normalized: true,
		Provider:   "static",
		Quote:      "usd",
		Days:       4,
		AnnualRate: 0.15,
	}
}

func TestRenderResult_PNGAndCache(t *testing.T) {
	cache := NewCache(time.Minute)
	r := NewRenderer(800, 500, time.UTC, cache)
	res := testResult(t)

	img, err := r.RenderResult(res)
	if err != nil {
		t.Fatalf("RenderResult: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Fatalf("not a PNG: % x", img[:8])
	}
	if cache.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", cache.Len())
	}
	again, err := r.RenderResult(res)
	if err != nil || !bytes.Equal(img, again) {
		t.Fatalf("cached render differs: %v", err)
	}
}

func TestRender_EmptyComposite(t *testing.T) {
	r := NewRenderer(0, 0, nil, nil)
	if _, err := r.Render(finance.Series{}, finance.Series{}, 0.15); err == nil {
		t.Fatal("expected error for empty composite")
	}
}

func TestSampleBaseline_HourlyGrid(t *testing.T) {
	baseline, _ := finance.Project(t0, 100, 0.15, 2)
	composite := finance.Series{}
	for h := 0; h <= 48; h += 12 {
		composite.Points = append(composite.Points, finance.ValuePoint{Time: t0.Add(time.Duration(h) * time.Hour), Value: 1})
	}
	got := sampleBaseline(baseline, composite, 0.15)
	if len(got) != 5 {
		t.Fatalf("len = %d", len(got))
	}
	if math.Abs(got[2]-baseline.Points[1].Value) > 1e-9 || math.Abs(got[4]-baseline.Points[2].Value) > 1e-9 {
		t.Errorf("sampled %v, want daily points %v", got, baseline.Values())
	}
	if !(got[1] > got[0] && got[1] < got[2]) {
		t.Errorf("midday value %v not between %v and %v", got[1], got[0], got[2])
	}
}

func TestSampleBaseline_SinglePoint(t *testing.T) {
	baseline, _ := finance.Project(t0, 100, 0.15, 0)
	if len(baseline.Points) != 1 {
		t.Fatalf("baseline has %d points, want 1", len(baseline.Points))
	}
	composite := finance.Series{Points: []finance.ValuePoint{
		{Time: t0, Value: 1},
		{Time: t0.AddDate(1, 0, 0), Value: 1},
	}}
	got := sampleBaseline(baseline, composite, 0.15)
	want := finance.ProjectAt(100, 0.15, composite.Points[1].Time.Sub(t0))
	if got[0] != 100 || math.Abs(got[1]-want) > 1e-9 || got[1] <= 100 {
		t.Errorf("sampled %v, want [100 %v]", got, want)
	}
}

func TestRender_OneDayLookback(t *testing.T) {
	composite := finance.Series{Points: []finance.ValuePoint{{Time: t0, Value: 100}, {Time: t0.Add(12 * time.Hour), Value: 101}}}
	baseline, _ := finance.Project(t0, 100, 0.15, 0)
	img, err := NewRenderer(400, 300, time.UTC, nil).Render(composite, baseline, 0.15)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Fatal("not a PNG")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := t0
	c.now = func() time.Time { return now }

	c.Set("a", []byte{1, 2, 3})
	img, ok := c.Get("a")
	if !ok || len(img) != 3 {
		t.Fatalf("Get = %v, %v", img, ok)
	}
	img[0] = 9
	if again, _ := c.Get("a"); again[0] != 1 {
		t.Error("Get must return a copy")
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should have expired")
	}
	if NewCache(0) != nil {
		t.Error("zero ttl should disable the cache")
	}
}

func TestCaption(t *testing.T) {
	res := testResult(t)
	res.Dropped = map[string]*collector.FetchError{"Litecoin": {Reason: collector.ReasonRateLimit}}
	got := Caption(res)
	for _, want := range []string{
		"Crypto Index, 4 days (calendar-day, USD)",
		"Weights: Bitcoin 65.0%, Ethereum 35.0%",
		"Crypto Index: 100.00 → 121.50 (2024-03-01 to 2024-03-05)",
		"Fixed Returns at 15.0%/yr",
		"Left out, no data: Litecoin (rate-limit)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("caption missing %q:\n%s", want, got)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v          float64
		quote      string
		normalized bool
		want       string
	}{
		{1234.5678, "usd", false, "$1,234.57"},
		{1234.5, "usd", true, "1,234.50"},
		{42, "btc", false, "42.00 BTC"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v, tt.quote, tt.normalized); got != tt.want {
			t.Errorf("FormatValue(%v, %q, %v) = %q, want %q", tt.v, tt.quote, tt.normalized, got, tt.want)
		}
	}
}
