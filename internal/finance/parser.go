package finance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reWindow = regexp.MustCompile(`^(\d+)([dwmy])$`)

// ParseWindow converts a window like 30d, 4w, 3m or 1y into days.
func ParseWindow(window string) (int, error) {
	g := reWindow.FindStringSubmatch(strings.ToLower(strings.TrimSpace(window)))
	if g == nil {
		return 0, fmt.Errorf("invalid window format: %s (use format like 30d, 4w, 3m, 1y)", window)
	}
	n, err := strconv.Atoi(g[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid window length: %s", window)
	}
	switch g[2] {
	case "w":
		n *= 7
	case "m":
		n *= 30 // approximate
	case "y":
		n *= 365
	}
	return n, nil
}

// ParseIndexArgs parses weight arguments such as
//
//	Bitcoin 65 Ethereum 30 Litecoin 5 30d
//	BTC=60,ETH=40 1y
//
// into a raw weight map and an optional lookback (0 when no window is given).
// Weights are not validated here beyond being numbers.
func ParseIndexArgs(args []string) (map[string]float64, int, error) {
	var tokens []string
	for _, a := range args {
		for _, f := range strings.FieldsFunc(a, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' }) {
			tokens = append(tokens, f)
		}
	}
	if len(tokens) == 0 {
		return nil, 0, fmt.Errorf("no weights given: use e.g. Bitcoin 65 Ethereum 35 30d")
	}

	days := 0
	if last := tokens[len(tokens)-1]; reWindow.MatchString(strings.ToLower(last)) {
		d, err := ParseWindow(last)
		if err != nil {
			return nil, 0, err
		}
		days = d
		tokens = tokens[:len(tokens)-1]
	}

	raw := map[string]float64{}
	seen := map[string]bool{}
	add := func(name, weightStr string) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("empty asset name before weight %q", weightStr)
		}
		w, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(weightStr), "%"), 64)
		if err != nil {
			return fmt.Errorf("invalid weight '%s' for %s: %w", weightStr, name, err)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate asset: %s", name)
		}
		seen[key] = true
		raw[name] = w
		return nil
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if k := strings.IndexAny(tok, "=:"); k >= 0 {
			if err := add(tok[:k], tok[k+1:]); err != nil {
				return nil, 0, err
			}
			continue
		}
		if i+1 >= len(tokens) {
			return nil, 0, fmt.Errorf("invalid format: asset %s has no weight", tok)
		}
		if err := add(tok, tokens[i+1]); err != nil {
			return nil, 0, err
		}
		i++
	}
	if len(raw) == 0 {
		return nil, 0, fmt.Errorf("no weights given: use e.g. Bitcoin 65 Ethereum 35 30d")
	}
	return raw, days, nil
}
