package finance

import (
	"fmt"
	"math"
	"time"
)

// BaselineLabel is the label of a fixed-rate comparison series.
const BaselineLabel = "Fixed Returns"

const daysPerYear = 365.0

// DailyFactor is the daily compounding factor for an annual rate.
func DailyFactor(annualRate float64) float64 {
	return math.Pow(1+annualRate, 1/daysPerYear)
}

// Project returns numDays+1 daily points starting at start, where day i is
// startValue * d^i and d is the daily compounding factor of annualRate.
func Project(start time.Time, startValue, annualRate float64, numDays int) (Series, error) {
	if numDays < 0 {
		return Series{}, fmt.Errorf("baseline: number of days must be >= 0, got %d", numDays)
	}
	if annualRate <= -1 || math.IsNaN(annualRate) || math.IsInf(annualRate, 0) {
		return Series{}, fmt.Errorf("baseline: annual rate %v must be a finite number > -1", annualRate)
	}
	d := DailyFactor(annualRate)
	out := Series{Label: BaselineLabel, Points: make([]ValuePoint, numDays+1)}
	for i := 0; i <= numDays; i++ {
		out.Points[i] = ValuePoint{
			Time:  start.AddDate(0, 0, i),
			Value: startValue * math.Pow(d, float64(i)),
		}
	}
	return out, nil
}

// ProjectAt is the baseline value after an arbitrary elapsed duration,
// counting fractional days.
func ProjectAt(startValue, annualRate float64, elapsed time.Duration) float64 {
	days := elapsed.Hours() / 24
	return startValue * math.Pow(DailyFactor(annualRate), days)
}

// SpanDays is the number of whole days between the first and last grid timestamps.
func SpanDays(times []time.Time) int {
	if len(times) < 2 {
		return 0
	}
	return int(times[len(times)-1].Sub(times[0]).Hours() / 24)
}
