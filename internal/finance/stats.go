package finance

import (
	"fmt"
	"math"
)

// periodsPerYear for annualization; crypto markets trade every day.
const periodsPerYear = 365.0

// Stats summarizes the performance of a composite series.
type Stats struct {
	InitialValue float64
	FinalValue   float64
	TotalReturn  float64 // percent
	AnnualReturn float64 // percent, geometric
	Volatility   float64 // percent, annualized
	SharpeRatio  float64 // risk-free rate assumed to be 0
	MaxDrawdown  float64 // percent
	NumPoints    int
}

// ComputeStats computes return, volatility and drawdown statistics.
func ComputeStats(s Series) (*Stats, error) {
	values := s.Values()
	n := len(values)
	if n < 3 {
		return nil, &DataError{Asset: s.Label, Reason: fmt.Sprintf("need at least 3 points for statistics, have %d", n)}
	}
	initial, final := values[0], values[n-1]
	if initial <= 0 {
		return nil, &DegenerateError{Time: s.Points[0].Time}
	}

	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if values[i-1] > 0 {
			returns = append(returns, (values[i]-values[i-1])/values[i-1])
		} else {
			returns = append(returns, 0)
		}
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	// Sample variance (N-1).
	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns) - 1)
	annualVol := math.Sqrt(variance) * math.Sqrt(periodsPerYear)

	years := float64(len(returns)) / periodsPerYear
	var annualReturn float64
	if years > 0 && final > 0 {
		annualReturn = math.Pow(final/initial, 1/years) - 1
	}

	var sharpe float64
	if annualVol > 0 {
		sharpe = annualReturn / annualVol
	}

	st := &Stats{
		InitialValue: initial,
		FinalValue:   final,
		TotalReturn:  (final - initial) / initial * 100,
		AnnualReturn: annualReturn * 100,
		Volatility:   annualVol * 100,
		SharpeRatio:  sharpe,
		MaxDrawdown:  MaxDrawdown(values) * 100,
		NumPoints:    n,
	}
	for name, v := range map[string]float64{
		"total return":  st.TotalReturn,
		"annual return": st.AnnualReturn,
		"volatility":    st.Volatility,
		"sharpe ratio":  st.SharpeRatio,
		"max drawdown":  st.MaxDrawdown,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid %s: %f", name, v)
		}
	}
	return st, nil
}

// MaxDrawdown is the largest peak-to-trough decline as a fraction of the peak.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	peak := 0.0
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 && v >= 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
