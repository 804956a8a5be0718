package repository

import "time"

// Window represents a lookback span for scans and queries.
type Window string

const (
	W30d  Window = "30d"
	W90d  Window = "90d"
	W180d Window = "180d"
	W365d Window = "365d"
)

// IsValidWindow returns true if w is a supported lookback window.
func IsValidWindow(w Window) bool {
	switch w {
	case W30d, W90d, W180d, W365d:
		return true
	default:
		return false
	}
}

// DefaultWindow returns the default lookback window.
func DefaultWindow() Window { return W90d }

// NormalizeWindow converts raw string to a valid window (or default).
func NormalizeWindow(s string) Window {
	if s == "" {
		return DefaultWindow()
	}
	w := Window(s)
	if IsValidWindow(w) {
		return w
	}
	return DefaultWindow()
}

// Duration returns the span the window covers.
func (w Window) Duration() time.Duration {
	switch w {
	case W30d:
		return 30 * 24 * time.Hour
	case W180d:
		return 180 * 24 * time.Hour
	case W365d:
		return 365 * 24 * time.Hour
	default:
		return 90 * 24 * time.Hour
	}
}
