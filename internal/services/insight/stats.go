package insight

import (
	"math"

	"SpendLens/internal/domain/models"
)

// categoryAggregate carries the running sums needed to derive both
// full-sample and leave-one-out statistics for a category.
type categoryAggregate struct {
	n     int
	sum   float64
	sumSq float64
}

// leaveOneOut returns mean and population standard deviation of the
// category with one amount removed. The amount check uses this so an
// outlier cannot inflate its own baseline and mask itself.
func (a categoryAggregate) leaveOneOut(amount float64) (m, sd float64, ok bool) {
	n := a.n - 1
	if n < 1 {
		return 0, 0, false
	}
	m = (a.sum - amount) / float64(n)
	variance := (a.sumSq-amount*amount)/float64(n) - m*m
	if variance <= 0 {
		// Zero (or negative, from float cancellation) spread: no baseline.
		return 0, 0, false
	}
	return m, math.Sqrt(variance), true
}

func buildCategoryAggregates(txs []models.Transaction) map[string]categoryAggregate {
	aggs := make(map[string]categoryAggregate)
	for i := range txs {
		t := &txs[i]
		if t.Type != models.EconExpense {
			continue
		}
		amt := t.AbsAmount()
		if !isFinite(amt) {
			continue
		}
		a := aggs[t.Category()]
		a.n++
		a.sum += amt
		a.sumSq += amt * amt
		aggs[t.Category()] = a
	}
	return aggs
}

// BuildCategoryStats groups absolute expense amounts by category id
// and computes population mean and standard deviation. Categories
// with fewer than minSamples finite amounts, or with zero deviation,
// are omitted entirely: downstream checks treat a missing entry as
// "no statistics, skip".
func BuildCategoryStats(txs []models.Transaction, minSamples int) map[string]models.CategoryStats {
	stats := make(map[string]models.CategoryStats)
	for cat, a := range buildCategoryAggregates(txs) {
		if a.n < minSamples {
			continue
		}
		m := a.sum / float64(a.n)
		variance := a.sumSq/float64(a.n) - m*m
		if variance <= 0 {
			continue
		}
		stats[cat] = models.CategoryStats{Count: a.n, Mean: m, StdDev: math.Sqrt(variance)}
	}
	return stats
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation around m.
func stdDev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sq float64
	for _, x := range xs {
		d := x - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
