package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2025-03-15")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestClampRange(t *testing.T) {
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	span := 90 * 24 * time.Hour

	from, to := ClampRange(time.Time{}, time.Time{}, span, now)
	if !to.Equal(now) || !from.Equal(now.Add(-span)) {
		t.Fatalf("zero range = [%v, %v]", from, to)
	}

	a := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	from, to = ClampRange(a, b, span, now)
	if !from.Equal(b) || !to.Equal(a) {
		t.Fatalf("inverted range not swapped: [%v, %v]", from, to)
	}
}
