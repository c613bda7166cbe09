package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cryptoindex/internal/finance"
)

// YahooFetcher reads daily closes from the Yahoo Finance v8 chart API,
// rotating between the query1 and query2 hosts with backoff retries.
type YahooFetcher struct {
	Client   *http.Client
	Hosts    []string
	Backoffs []time.Duration
	// Scheme is "https" except in tests.
	Scheme string
}

// NewYahooFetcher creates a fetcher with the default hosts and backoffs.
func NewYahooFetcher(client *http.Client) *YahooFetcher {
	return &YahooFetcher{
		Client:   client,
		Hosts:    []string{"query1.finance.yahoo.com", "query2.finance.yahoo.com"},
		Backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
		Scheme:   "https",
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooRange picks the smallest chart range that covers days.
func yahooRange(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	case days <= 1825:
		return "5y"
	default:
		return "max"
	}
}

func (f *YahooFetcher) FetchHistory(ctx context.Context, asset finance.Asset, quote string, days int) (finance.PriceSeries, error) {
	base := asset.YahooSymbol
	if base == "" {
		base = asset.ID
	}
	symbol := strings.ToUpper(base + "-" + quote)
	header := http.Header{"Referer": {fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", symbol)}}

	var lastErr error
	for attempt := 0; attempt <= len(f.Backoffs); attempt++ {
		for _, host := range f.Hosts {
			endpoint := fmt.Sprintf("%s://%s/v8/finance/chart/%s?range=%s&interval=1d&events=div,splits",
				f.Scheme, host, symbol, yahooRange(days))
			body, err := getJSONBody(ctx, f.Client, endpoint, header)
			if err != nil {
				lastErr = err
				if ctx.Err() != nil {
					return finance.PriceSeries{}, asFetchError(f.Name(), asset.ID, err)
				}
				continue
			}
			s, err := parseYahooChart(asset.ID, body)
			if err != nil {
				return finance.PriceSeries{}, &FetchError{Provider: f.Name(), Asset: asset.ID, Reason: ReasonMalformed, Err: err}
			}
			return trimToDays(s, days), nil
		}
		if attempt < len(f.Backoffs) {
			if err := sleepCtx(ctx, f.Backoffs[attempt]); err != nil {
				return finance.PriceSeries{}, asFetchError(f.Name(), asset.ID, err)
			}
		}
	}
	return finance.PriceSeries{}, asFetchError(f.Name(), asset.ID, lastErr)
}

func parseYahooChart(asset string, body []byte) (finance.PriceSeries, error) {
	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err != nil {
		return finance.PriceSeries{}, fmt.Errorf("parse yahoo json: %w; body: %s", err, preview(body))
	}
	if yc.Chart.Error != nil {
		return finance.PriceSeries{}, fmt.Errorf("yahoo error %s: %s", yc.Chart.Error.Code, yc.Chart.Error.Description)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return finance.PriceSeries{}, fmt.Errorf("no data")
	}
	ts := yc.Chart.Result[0].Timestamp
	closes := yc.Chart.Result[0].Indicators.Quote[0].Close
	raw := make([]finance.Point, 0, len(ts))
	for i, t := range ts {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		raw = append(raw, finance.Point{Time: time.Unix(t, 0).UTC(), Price: *closes[i]})
	}
	return finance.SeriesFromRaw(asset, raw), nil
}

// trimToDays keeps the points no older than days before the last one.
func trimToDays(s finance.PriceSeries, days int) finance.PriceSeries {
	if s.Len() == 0 || days <= 0 {
		return s
	}
	cutoff := s.Last().AddDate(0, 0, -days)
	i := 0
	for i < len(s.Points) && s.Points[i].Time.Before(cutoff) {
		i++
	}
	return finance.PriceSeries{Asset: s.Asset, Points: s.Points[i:]}
}
