// Package chart draws composite index charts with go-charts.
package chart

import (
	"fmt"
	"math"
	"time"

	"github.com/vicanso/go-charts/v2"

	"cryptoindex/internal/finance"
	"cryptoindex/internal/indexer"
)

// DefaultTitle heads every index chart.
const DefaultTitle = "Historical Crypto Index"

// Renderer turns series into PNG charts.
type Renderer struct {
	Width  int
	Height int
	// Location is used for x-axis labels.
	Location *time.Location
	cache    *Cache
}

// NewRenderer creates a renderer; a nil cache disables caching.
func NewRenderer(width, height int, loc *time.Location, cache *Cache) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{Width: width, Height: height, Location: loc, cache: cache}
}

// Render draws the composite and its baseline, plus any constituents. The
// baseline is sampled at the composite's timestamps so both share the x axis;
// annualRate is the growth rate the baseline was projected with.
func (r *Renderer) Render(composite, baseline finance.Series, annualRate float64, constituents ...finance.Series) ([]byte, error) {
	return r.draw(DefaultTitle, summaryLine(composite, baseline), composite, baseline, annualRate, constituents)
}

// RenderResult draws a computed index with its statistics in the subtitle.
// Results are cached by their parameters and last timestamp.
func (r *Renderer) RenderResult(res *indexer.Result) ([]byte, error) {
	key := cacheKey(res)
	if r.cache != nil {
		if img, ok := r.cache.Get(key); ok {
			return img, nil
		}
	}
	img, err := r.draw(DefaultTitle, Subtitle(res), res.Composite, res.Baseline, res.AnnualRate, res.Constituents)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(key, img)
	}
	return img, nil
}

func (r *Renderer) draw(title, subtitle string, composite, baseline finance.Series, rate float64, constituents []finance.Series) ([]byte, error) {
	if len(composite.Points) == 0 {
		return nil, fmt.Errorf("nothing to draw: %w", finance.ErrInsufficientData)
	}

	values := [][]float64{composite.Values()}
	names := []string{labelOr(composite.Label, finance.IndexLabel)}
	if len(baseline.Points) > 0 {
		values = append(values, sampleBaseline(baseline, composite, rate))
		names = append(names, labelOr(baseline.Label, finance.BaselineLabel))
	}
	for _, c := range constituents {
		if len(c.Points) != len(composite.Points) {
			continue
		}
		values = append(values, c.Values())
		names = append(names, c.Label)
	}

	yMin, yMax := valueRange(values)
	xLabels := r.xLabels(composite)
	split := len(xLabels) / 3
	if split < 3 {
		split = 3
	}
	if split > 10 {
		split = 10
	}

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
		seriesList[i].AxisIndex = 0
	}
	opts := []charts.OptionFunc{
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	}
	if r.Width > 0 {
		opts = append(opts, charts.WidthOptionFunc(r.Width))
	}
	if r.Height > 0 {
		opts = append(opts, charts.HeightOptionFunc(r.Height))
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// sampleBaseline evaluates the baseline curve at each composite timestamp,
// compounding from the baseline's first point at the given annual rate.
func sampleBaseline(baseline, composite finance.Series, rate float64) []float64 {
	start := baseline.Points[0]
	out := make([]float64, len(composite.Points))
	for i, p := range composite.Points {
		out[i] = finance.ProjectAt(start.Value, rate, p.Time.Sub(start.Time))
	}
	return out
}

func valueRange(values [][]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Abs(hi) * 0.05
	}
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}

func (r *Renderer) xLabels(s finance.Series) []string {
	layout := "Jan 02"
	if n := len(s.Points); n > 1 {
		span := s.Points[n-1].Time.Sub(s.Points[0].Time)
		switch {
		case span <= 3*24*time.Hour:
			layout = "Jan 02 15:04"
		case span > 180*24*time.Hour:
			layout = "Jan '06"
		}
	}
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time.In(r.Location).Format(layout)
	}
	return out
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
