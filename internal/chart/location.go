package chart

import "time"

// LoadLocation returns the named zone, falling back to UTC if tzdata is missing.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
