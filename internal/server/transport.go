package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cryptoindex/internal/finance"
	"cryptoindex/internal/indexer"
)

// decodeIndexRequest reads the index query over the configured defaults:
//
//	weights=Bitcoin:65,Ethereum:30 days=30 window=1y policy=calendar-day
//	rate=0.15 normalize=100 quote=usd partial=true
func decodeIndexRequest(r *http.Request, defaults indexer.Defaults) (indexer.Request, error) {
	q := r.URL.Query()
	req := defaults.Request()

	if v := q.Get("weights"); v != "" {
		raw, days, err := finance.ParseIndexArgs([]string{v})
		if err != nil {
			return req, &indexer.RequestError{Field: "weights", Msg: err.Error()}
		}
		req.Weights = raw
		if days > 0 {
			req.Days = days
		}
	}
	if v := q.Get("window"); v != "" {
		days, err := finance.ParseWindow(v)
		if err != nil {
			return req, &indexer.RequestError{Field: "window", Msg: err.Error()}
		}
		req.Days = days
	}
	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return req, &indexer.RequestError{Field: "days", Msg: fmt.Sprintf("%q is not a whole number", v)}
		}
		req.Days = days
	}
	if v := q.Get("policy"); v != "" {
		p, err := finance.ParsePolicy(v)
		if err != nil {
			return req, &indexer.RequestError{Field: "policy", Msg: err.Error()}
		}
		req.Policy = p
	}
	var err error
	if req.AnnualRate, err = floatParam(q.Get("rate"), "rate", req.AnnualRate); err != nil {
		return req, err
	}
	if req.NormalizeTo, err = floatParam(q.Get("normalize"), "normalize", req.NormalizeTo); err != nil {
		return req, err
	}
	if v := q.Get("quote"); v != "" {
		req.Quote = strings.ToLower(v)
	}
	if v := q.Get("partial"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, &indexer.RequestError{Field: "partial", Msg: fmt.Sprintf("%q is not a boolean", v)}
		}
		req.AllowPartial = b
	}
	return req, nil
}

func floatParam(v, field string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, &indexer.RequestError{Field: field, Msg: fmt.Sprintf("%q is not a number", v)}
	}
	return f, nil
}

type pointJSON struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

type statsJSON struct {
	InitialValue float64 `json:"initial_value"`
	FinalValue   float64 `json:"final_value"`
	TotalReturn  float64 `json:"total_return_pct"`
	AnnualReturn float64 `json:"annual_return_pct"`
	Volatility   float64 `json:"volatility_pct"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown_pct"`
	NumPoints    int     `json:"num_points"`
}

type indexResponse struct {
	Weights      map[string]float64     `json:"weights"`
	Policy       string                 `json:"policy"`
	Provider     string                 `json:"provider"`
	Quote        string                 `json:"quote"`
	Days         int                    `json:"days"`
	AnnualRate   float64                `json:"annual_rate"`
	Normalized   bool                   `json:"normalized"`
	Composite    []pointJSON            `json:"composite"`
	Baseline     []pointJSON            `json:"baseline"`
	Constituents map[string][]pointJSON `json:"constituents,omitempty"`
	Stats        *statsJSON             `json:"stats,omitempty"`
	Dropped      map[string]string      `json:"dropped,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func encodeResult(res *indexer.Result) indexResponse {
	out := indexResponse{
		Weights:    res.Weights,
		Policy:     res.Policy.String(),
		Provider:   res.Provider,
		Quote:      res.Quote,
		Days:       res.Days,
		AnnualRate: res.AnnualRate,
		Normalized: res.Normalized,
		Composite:  encodePoints(res.Composite),
		Baseline:   encodePoints(res.Baseline),
	}
	if len(res.Constituents) > 0 {
		out.Constituents = make(map[string][]pointJSON, len(res.Constituents))
		for _, c := range res.Constituents {
			out.Constituents[c.Label] = encodePoints(c)
		}
	}
	if st := res.Stats; st != nil {
		out.Stats = &statsJSON{
			InitialValue: st.InitialValue,
			FinalValue:   st.FinalValue,
			TotalReturn:  st.TotalReturn,
			AnnualReturn: st.AnnualReturn,
			Volatility:   st.Volatility,
			SharpeRatio:  st.SharpeRatio,
			MaxDrawdown:  st.MaxDrawdown,
			NumPoints:    st.NumPoints,
		}
	}
	if len(res.Dropped) > 0 {
		out.Dropped = make(map[string]string, len(res.Dropped))
		for id, fe := range res.Dropped {
			out.Dropped[id] = string(fe.Reason)
		}
	}
	return out
}

func encodePoints(s finance.Series) []pointJSON {
	out := make([]pointJSON, len(s.Points))
	for i, p := range s.Points {
		out[i] = pointJSON{Time: p.Time.UTC(), Value: p.Value}
	}
	return out
}

// writeJSON encodes v before writing the status, so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "{\"error\":%q}\n", msgInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
