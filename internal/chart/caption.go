package chart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"cryptoindex/internal/finance"
	"cryptoindex/internal/indexer"
)

// FormatValue renders v with thousands separators. Raw values carry the
// quote currency; normalized index points do not.
func FormatValue(v float64, quote string, normalized bool) string {
	s := humanize.FormatFloat("#,###.##", v)
	if normalized {
		return s
	}
	switch strings.ToLower(quote) {
	case "usd":
		return "$" + s
	case "eur":
		return "€" + s
	default:
		return s + " " + strings.ToUpper(quote)
	}
}

func summaryLine(composite, baseline finance.Series) string {
	var parts []string
	if p, ok := composite.Last(); ok {
		parts = append(parts, fmt.Sprintf("%s %s", labelOr(composite.Label, finance.IndexLabel), humanize.FormatFloat("#,###.##", p.Value)))
	}
	if p, ok := baseline.Last(); ok {
		parts = append(parts, fmt.Sprintf("%s %s", labelOr(baseline.Label, finance.BaselineLabel), humanize.FormatFloat("#,###.##", p.Value)))
	}
	return strings.Join(parts, " | ")
}

// Subtitle is the one-line chart summary of a result.
func Subtitle(res *indexer.Result) string {
	parts := []string{res.Weights.String()}
	if last, ok := res.Composite.Last(); ok {
		parts = append(parts, "Index "+FormatValue(last.Value, res.Quote, res.Normalized))
	}
	if last, ok := res.Baseline.Last(); ok {
		parts = append(parts, fmt.Sprintf("%.0f%%/yr %s", res.AnnualRate*100, FormatValue(last.Value, res.Quote, res.Normalized)))
	}
	if st := res.Stats; st != nil {
		parts = append(parts, fmt.Sprintf("Return %.2f%% MaxDD %.2f%%", st.TotalReturn, st.MaxDrawdown))
	}
	return strings.Join(parts, " | ")
}

// Caption is the multi-line text sent alongside a chart.
func Caption(res *indexer.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %d days (%s, %s)\n", finance.IndexLabel, res.Days, res.Policy, strings.ToUpper(res.Quote))
	fmt.Fprintf(&b, "Weights: %s\n", res.Weights.String())

	if last, ok := res.Composite.Last(); ok {
		first := res.Composite.Points[0]
		fmt.Fprintf(&b, "%s: %s → %s (%s to %s)\n", finance.IndexLabel,
			FormatValue(first.Value, res.Quote, res.Normalized), FormatValue(last.Value, res.Quote, res.Normalized),
			first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"))
	}
	if bl, ok := res.Baseline.Last(); ok {
		fmt.Fprintf(&b, "%s at %.1f%%/yr: %s\n", finance.BaselineLabel, res.AnnualRate*100, FormatValue(bl.Value, res.Quote, res.Normalized))
	}
	if st := res.Stats; st != nil {
		fmt.Fprintf(&b, "Return %.2f%% | Annualized %.2f%% | Vol %.2f%% | Sharpe %.2f | MaxDD %.2f%%\n",
			st.TotalReturn, st.AnnualReturn, st.Volatility, st.SharpeRatio, st.MaxDrawdown)
	}
	if !res.Normalized {
		b.WriteString("Shown as raw weighted prices: the index starts at zero and cannot be normalized.\n")
	}
	if len(res.Dropped) > 0 {
		ids := make([]string, 0, len(res.Dropped))
		for id, fe := range res.Dropped {
			ids = append(ids, fmt.Sprintf("%s (%s)", id, fe.Reason))
		}
		sort.Strings(ids)
		fmt.Fprintf(&b, "Left out, no data: %s\n", strings.Join(ids, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
