package insight

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"SpendLens/internal/domain/models"
)

// RecurringDetector orchestrates grouping, interval classification,
// confidence scoring and activity prediction. Stateless per
// invocation: each Detect replaces the prior result set; callers diff
// and persist.
type RecurringDetector struct {
	cfg RecurringConfig
}

// NewRecurringDetector creates a detector with the given settings.
func NewRecurringDetector(cfg RecurringConfig) *RecurringDetector {
	return &RecurringDetector{cfg: cfg}
}

// Detect returns the full recurring-payment set for txs evaluated at
// now, filtered by the caller's exclusion list. Output is ordered
// active first, then by descending latest amount.
func (d *RecurringDetector) Detect(txs []models.Transaction, excluded []models.ExcludedMerchant, now time.Time) []models.RecurringPayment {
	var out []models.RecurringPayment

	for _, grp := range GroupByMerchant(txs) {
		if rp, ok := d.evaluate(grp, now); ok && !isExcluded(grp.NormalizedName, excluded) {
			out = append(out, rp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsActive != out[j].IsActive {
			return out[i].IsActive
		}
		return out[i].LatestAmount > out[j].LatestAmount
	})
	return out
}

func (d *RecurringDetector) evaluate(grp models.MerchantGroup, now time.Time) (models.RecurringPayment, bool) {
	n := len(grp.Transactions)
	if n < d.cfg.MinOccurrencesYearly {
		return models.RecurringPayment{}, false
	}

	sorted := make([]models.Transaction, n)
	copy(sorted, grp.Transactions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	dates := make([]time.Time, 0, n)
	amounts := make([]float64, 0, n)
	ids := make([]string, 0, n)
	for i := range sorted {
		dates = append(dates, sorted[i].Date)
		amounts = append(amounts, sorted[i].AbsAmount())
		ids = append(ids, sorted[i].ID)
	}

	profile := AnalyzeIntervals(dates, d.cfg.IntervalToleranceDays)

	// The lower yearly-only minimum admits sparse groups past the
	// count gate, but only a yearly classification keeps them alive.
	if n < d.cfg.MinOccurrences && !(profile.HasFrequency && profile.Frequency == models.FreqYearly) {
		return models.RecurringPayment{}, false
	}

	confidence := ScoreConfidence(ConfidenceInput{
		Occurrences: n,
		Amounts:     amounts,
		Profile:     profile,
		Description: sorted[n-1].Description,
	}, d.cfg)
	if !profile.HasFrequency || confidence < d.cfg.ConfidenceThreshold {
		return models.RecurringPayment{}, false
	}

	latest := sorted[n-1]
	firstSeen := sorted[0].Date
	lastSeen := latest.Date

	expectedDays := profile.Frequency.ExpectedIntervalDays()
	allowed := time.Duration(expectedDays*(1+d.cfg.MissedPaymentsAllowance)*24) * time.Hour
	active := now.Sub(lastSeen) <= allowed

	rp := models.RecurringPayment{
		ID:              recurringID(grp.NormalizedName),
		MerchantName:    pickDisplayName(grp.OriginalNames),
		OriginalNames:   grp.OriginalNames,
		Category:        latest.Category(),
		LatestAmount:    latest.AbsAmount(),
		AverageAmount:   mean(amounts),
		Frequency:       profile.Frequency,
		Confidence:      confidence,
		FirstSeen:       firstSeen,
		LastSeen:        lastSeen,
		OccurrenceCount: n,
		TransactionIDs:  ids,
		IsActive:        active,
		Status:          models.StatusInactive,
	}
	if active {
		rp.Status = models.StatusActive
		next := NextExpectedDate(lastSeen, profile.Frequency)
		rp.NextExpectedDate = &next
	}
	return rp, true
}

// recurringID derives a stable id from the group key. Ids are not a
// reconciliation handle across runs; merchant name is.
func recurringID(normalizedName string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(normalizedName))
	return fmt.Sprintf("rp-%016x", h.Sum64())
}

// pickDisplayName prefers the shortest original spelling longer than
// three characters, else the shortest overall.
func pickDisplayName(names []string) string {
	var best, bestAny string
	for _, n := range names {
		if bestAny == "" || len(n) < len(bestAny) {
			bestAny = n
		}
		if len(n) > 3 && (best == "" || len(n) < len(best)) {
			best = n
		}
	}
	if best != "" {
		return best
	}
	return bestAny
}

// isExcluded applies the user's "not recurring" decisions: a group is
// dropped when its normalized name contains, or is contained in, an
// excluded normalized name.
func isExcluded(normalizedName string, excluded []models.ExcludedMerchant) bool {
	for _, ex := range excluded {
		if ex.NormalizedName == "" {
			continue
		}
		if strings.Contains(normalizedName, ex.NormalizedName) || strings.Contains(ex.NormalizedName, normalizedName) {
			return true
		}
	}
	return false
}

// NextExpectedDate advances one interval unit with calendar-aware
// arithmetic: month, quarter and year steps clamp the day to the
// target month's length instead of overflowing (Jan 31 + 1 month is
// Feb 28, or Feb 29 in a leap year).
func NextExpectedDate(last time.Time, f models.Frequency) time.Time {
	switch f {
	case models.FreqWeekly:
		return last.AddDate(0, 0, 7)
	case models.FreqQuarterly:
		return addMonthsClamped(last, 3)
	case models.FreqYearly:
		return addMonthsClamped(last, 12)
	default:
		return addMonthsClamped(last, 1)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, day := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
