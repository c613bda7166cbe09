package finance

import (
	"sort"
	"strings"
	"time"
)

// Point is a single observed price of an asset.
type Point struct {
	Time  time.Time
	Price float64
}

// ValuePoint is one value of a derived series (composite index or baseline).
type ValuePoint struct {
	Time  time.Time
	Value float64
}

// Series is an ordered (timestamp, value) sequence with a display label.
type Series struct {
	Label  string
	Points []ValuePoint
}

// Values returns the series values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Last returns the final point of the series, or false when it is empty.
func (s Series) Last() (ValuePoint, bool) {
	if len(s.Points) == 0 {
		return ValuePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Asset maps a display identifier to provider-specific symbols.
type Asset struct {
	ID          string   `yaml:"id"`
	CoinGeckoID string   `yaml:"coingecko_id"`
	YahooSymbol string   `yaml:"yahoo_symbol"`
	Aliases     []string `yaml:"aliases"`
}

// Universe is the immutable set of assets configured at startup.
type Universe struct {
	assets []Asset
	byName map[string]Asset
}

// NewUniverse indexes assets by id and alias, case-insensitively.
func NewUniverse(assets []Asset) *Universe {
	u := &Universe{byName: make(map[string]Asset, len(assets)*2)}
	for _, a := range assets {
		u.assets = append(u.assets, a)
		u.byName[strings.ToLower(a.ID)] = a
		for _, alias := range a.Aliases {
			u.byName[strings.ToLower(alias)] = a
		}
	}
	return u
}

// Resolve looks up an asset by id or alias.
func (u *Universe) Resolve(name string) (Asset, bool) {
	a, ok := u.byName[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Known returns the set of canonical asset ids.
func (u *Universe) Known() map[string]bool {
	out := make(map[string]bool, len(u.assets))
	for _, a := range u.assets {
		out[a.ID] = true
	}
	return out
}

// Assets returns the configured assets in configuration order.
func (u *Universe) Assets() []Asset {
	out := make([]Asset, len(u.assets))
	copy(out, u.assets)
	return out
}

// Canonicalize rewrites alias keys of a raw weight map to canonical ids.
// Unresolvable names are kept as-is so validation can report them.
func (u *Universe) Canonicalize(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for name, w := range raw {
		if a, ok := u.Resolve(name); ok {
			out[a.ID] += w
			continue
		}
		out[name] += w
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
