package insight

import (
	"math"
	"sort"
	"time"

	"SpendLens/internal/domain/models"
)

// IntervalProfile summarizes the spacing of a merchant group's
// charges.
type IntervalProfile struct {
	Frequency          models.Frequency
	HasFrequency       bool
	AvgIntervalDays    float64
	IntervalStdDev     float64
	NormalizedVariance float64 // stddev / expected interval of the matched band
}

type frequencyBand struct {
	freq      models.Frequency
	expected  float64
	tolerance float64
}

// AnalyzeIntervals computes day deltas between consecutive charge
// dates and classifies the average against the canonical bands.
// Bands are evaluated in order; the first whose range contains the
// average and whose interval deviation stays within 1.5x the band
// tolerance wins. Zero and negative deltas (same-day charges,
// unordered input already sorted here) are dropped.
func AnalyzeIntervals(dates []time.Time, monthlyToleranceDays float64) IntervalProfile {
	sorted := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if !d.IsZero() {
			sorted = append(sorted, d)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var intervals []float64
	for i := 1; i < len(sorted); i++ {
		days := sorted[i].Sub(sorted[i-1]).Hours() / 24
		if days > 0 {
			intervals = append(intervals, days)
		}
	}
	if len(intervals) == 0 {
		return IntervalProfile{}
	}

	avg := mean(intervals)
	sd := stdDev(intervals, avg)

	bands := []frequencyBand{
		{models.FreqWeekly, 7, 2},
		{models.FreqMonthly, 30, monthlyToleranceDays},
		{models.FreqQuarterly, 91, 14},
		{models.FreqYearly, 365, 30},
	}
	for _, b := range bands {
		if math.Abs(avg-b.expected) <= b.tolerance && sd <= 1.5*b.tolerance {
			return IntervalProfile{
				Frequency:          b.freq,
				HasFrequency:       true,
				AvgIntervalDays:    avg,
				IntervalStdDev:     sd,
				NormalizedVariance: sd / b.expected,
			}
		}
	}

	nv := 0.0
	if avg > 0 {
		nv = sd / avg
	}
	return IntervalProfile{AvgIntervalDays: avg, IntervalStdDev: sd, NormalizedVariance: nv}
}
