package util

import "strconv"

// ParseIntDefault parses query-string integers, falling back to def
// on empty or malformed input.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
