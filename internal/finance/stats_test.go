package finance

import (
	"math"
	"testing"
)

func valueSeries(vals ...float64) Series {
	s := Series{Label: "test"}
	for i, v := range vals {
		s.Points = append(s.Points, ValuePoint{Time: d1.AddDate(0, 0, i), Value: v})
	}
	return s
}

func TestComputeStats(t *testing.T) {
	st, err := ComputeStats(valueSeries(100, 120, 90, 110))
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if math.Abs(st.TotalReturn-10) > 1e-9 {
		t.Errorf("TotalReturn = %v, want 10", st.TotalReturn)
	}
	if math.Abs(st.MaxDrawdown-25) > 1e-9 {
		t.Errorf("MaxDrawdown = %v, want 25", st.MaxDrawdown)
	}
	if st.NumPoints != 4 || st.InitialValue != 100 || st.FinalValue != 110 {
		t.Errorf("unexpected summary: %+v", st)
	}
	if st.Volatility <= 0 {
		t.Errorf("Volatility = %v, want > 0", st.Volatility)
	}
}

func TestComputeStats_TooShort(t *testing.T) {
	if _, err := ComputeStats(valueSeries(100, 101)); err == nil {
		t.Error("expected error for two points")
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		vals []float64
		want float64
	}{
		{[]float64{1, 2, 3}, 0},
		{[]float64{100, 50, 200, 150}, 0.5},
		{[]float64{10}, 0},
	}
	for _, tt := range tests {
		if got := MaxDrawdown(tt.vals); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("MaxDrawdown(%v) = %v, want %v", tt.vals, got, tt.want)
		}
	}
}

func TestFilterIQR(t *testing.T) {
	var pts []Point
	for i := 0; i < 30; i++ {
		pts = append(pts, Point{Time: d1.AddDate(0, 0, i), Price: 100 + float64(i%5)})
	}
	pts[10].Price = 10000
	out := FilterIQR(pts, 1.5, 20)
	if len(out) != 29 {
		t.Fatalf("len = %d, want 29", len(out))
	}
	for _, p := range out {
		if p.Price == 10000 {
			t.Error("outlier kept")
		}
	}
	short := pts[:5]
	if got := FilterIQR(short, 1.5, 20); len(got) != 5 {
		t.Errorf("short series filtered to %d points", len(got))
	}
}
