package finance

import (
	"testing"
)

func TestParseIndexArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     map[string]float64
		wantDays int
		wantErr  bool
	}{
		{
			name:     "pairs with window",
			args:     []string{"Bitcoin", "65", "Ethereum", "30", "Litecoin", "5", "30d"},
			want:     map[string]float64{"Bitcoin": 65, "Ethereum": 30, "Litecoin": 5},
			wantDays: 30,
		},
		{
			name: "key=value comma list",
			args: []string{"BTC=60,ETH=40"},
			want: map[string]float64{"BTC": 60, "ETH": 40},
		},
		{
			name:     "colon and percent",
			args:     []string{"BTC:60%", "ETH:40%", "1y"},
			want:     map[string]float64{"BTC": 60, "ETH": 40},
			wantDays: 365,
		},
		{name: "missing weight", args: []string{"BTC", "60", "ETH"}, wantErr: true},
		{name: "bad number", args: []string{"BTC", "sixty"}, wantErr: true},
		{name: "duplicate", args: []string{"BTC=1", "btc=2"}, wantErr: true},
		{name: "empty", args: nil, wantErr: true},
		{name: "only window", args: []string{"30d"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, days, err := ParseIndexArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if days != tt.wantDays {
				t.Errorf("days = %d, want %d", days, tt.wantDays)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestParseWindow(t *testing.T) {
	tests := map[string]int{"7d": 7, "2w": 14, "3m": 90, "1y": 365, "90D": 90}
	for in, want := range tests {
		got, err := ParseWindow(in)
		if err != nil || got != want {
			t.Errorf("ParseWindow(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "0d", "d", "10x", "1.5y"} {
		if _, err := ParseWindow(bad); err == nil {
			t.Errorf("ParseWindow(%q) expected error", bad)
		}
	}
}
