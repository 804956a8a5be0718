package insight

import (
	"math"
	"testing"
	"time"

	"SpendLens/internal/domain/models"
)

func dates(layout string, ss ...string) []time.Time {
	out := make([]time.Time, 0, len(ss))
	for _, s := range ss {
		d, err := time.Parse(layout, s)
		if err != nil {
			panic(err)
		}
		out = append(out, d)
	}
	return out
}

func TestAnalyzeIntervalsMonthly(t *testing.T) {
	ds := dates("2006-01-02", "2025-01-01", "2025-02-01", "2025-03-01", "2025-04-01", "2025-05-01")
	p := AnalyzeIntervals(ds, 7)
	if !p.HasFrequency || p.Frequency != models.FreqMonthly {
		t.Fatalf("profile = %+v, want monthly", p)
	}
	if math.Abs(p.AvgIntervalDays-30) > 0.01 {
		t.Fatalf("avg interval = %v", p.AvgIntervalDays)
	}
	if p.NormalizedVariance >= 0.1 {
		t.Fatalf("normalized variance = %v, want < 0.1", p.NormalizedVariance)
	}
}

func TestAnalyzeIntervalsWeekly(t *testing.T) {
	ds := dates("2006-01-02", "2025-01-03", "2025-01-10", "2025-01-17", "2025-01-24")
	p := AnalyzeIntervals(ds, 7)
	if p.Frequency != models.FreqWeekly {
		t.Fatalf("profile = %+v, want weekly", p)
	}
}

func TestAnalyzeIntervalsYearly(t *testing.T) {
	ds := dates("2006-01-02", "2024-06-01", "2025-06-01")
	p := AnalyzeIntervals(ds, 7)
	if p.Frequency != models.FreqYearly {
		t.Fatalf("profile = %+v, want yearly", p)
	}
}

func TestAnalyzeIntervalsUnclassified(t *testing.T) {
	// 45-day spacing sits between the monthly and quarterly bands.
	ds := dates("2006-01-02", "2025-01-01", "2025-02-15", "2025-04-01")
	p := AnalyzeIntervals(ds, 7)
	if p.HasFrequency {
		t.Fatalf("profile = %+v, want unclassified", p)
	}
}

func TestAnalyzeIntervalsErraticSpacing(t *testing.T) {
	// Average lands in the monthly band but the spread disqualifies it.
	ds := dates("2006-01-02", "2025-01-01", "2025-01-04", "2025-02-28", "2025-03-31")
	p := AnalyzeIntervals(ds, 7)
	if p.HasFrequency {
		t.Fatalf("profile = %+v, want unclassified due to spread", p)
	}
}

func TestAnalyzeIntervalsDegenerate(t *testing.T) {
	if p := AnalyzeIntervals(nil, 7); p.HasFrequency {
		t.Fatalf("nil dates should not classify")
	}
	one := dates("2006-01-02", "2025-01-01")
	if p := AnalyzeIntervals(one, 7); p.HasFrequency {
		t.Fatalf("single date should not classify")
	}
	same := dates("2006-01-02", "2025-01-01", "2025-01-01")
	if p := AnalyzeIntervals(same, 7); p.HasFrequency {
		t.Fatalf("zero-day deltas should be dropped")
	}
}
