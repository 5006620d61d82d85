package common

import "strings"

// ParseStations splits a comma separated station list, trimming and
// upper-casing each code. Empty items and repeats are dropped; order is kept.
func ParseStations(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
