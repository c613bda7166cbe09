package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptoindex/internal/finance"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoFetcher reads market_chart history from the CoinGecko public API.
// Up to 90 days the API returns hourly points, beyond that daily ones.
type CoinGeckoFetcher struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

// NewCoinGeckoFetcher creates a fetcher against the public endpoint.
func NewCoinGeckoFetcher(client *http.Client, apiKey string) *CoinGeckoFetcher {
	return &CoinGeckoFetcher{Client: client, BaseURL: coinGeckoBaseURL, APIKey: apiKey}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

type marketChartResp struct {
	Prices [][]float64 `json:"prices"`
}

func (f *CoinGeckoFetcher) FetchHistory(ctx context.Context, asset finance.Asset, quote string, days int) (finance.PriceSeries, error) {
	id := asset.CoinGeckoID
	if id == "" {
		id = strings.ToLower(asset.ID)
	}
	q := url.Values{
		"vs_currency": {strings.ToLower(quote)},
		"days":        {strconv.Itoa(days)},
	}
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", strings.TrimRight(f.BaseURL, "/"), url.PathEscape(id), q.Encode())

	var header http.Header
	if f.APIKey != "" {
		header = http.Header{"x-cg-demo-api-key": {f.APIKey}}
	}
	body, err := getJSONBody(ctx, f.Client, endpoint, header)
	if err != nil {
		return finance.PriceSeries{}, asFetchError(f.Name(), asset.ID, err)
	}

	var mc marketChartResp
	if err := json.Unmarshal(body, &mc); err != nil {
		return finance.PriceSeries{}, &FetchError{Provider: f.Name(), Asset: asset.ID, Reason: ReasonMalformed,
			Err: fmt.Errorf("parse market_chart: %w; body: %s", err, preview(body))}
	}
	raw := make([]finance.Point, 0, len(mc.Prices))
	for _, pair := range mc.Prices {
		if len(pair) < 2 {
			continue
		}
		raw = append(raw, finance.Point{Time: time.UnixMilli(int64(pair[0])).UTC(), Price: pair[1]})
	}
	return finance.SeriesFromRaw(asset.ID, raw), nil
}
