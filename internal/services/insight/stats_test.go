package insight

import (
	"math"
	"strconv"
	"testing"
	"time"

	"SpendLens/internal/domain/models"
)

func expense(id, category string, amount float64, date time.Time) models.Transaction {
	return models.Transaction{
		ID:          id,
		Date:        date,
		Description: id,
		Amount:      -amount,
		Direction:   models.DirectionDebit,
		Type:        models.EconExpense,
		CategoryID:  category,
	}
}

func TestBuildCategoryStatsValues(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var txs []models.Transaction
	for i, amt := range []float64{20, 22, 21, 23, 19, 20} {
		txs = append(txs, expense(itoa(i), "dining", amt, base.AddDate(0, 0, i)))
	}

	stats := BuildCategoryStats(txs, 5)
	cs, ok := stats["dining"]
	if !ok {
		t.Fatalf("expected stats for dining")
	}
	if cs.Count != 6 {
		t.Fatalf("count = %d, want 6", cs.Count)
	}
	if math.Abs(cs.Mean-20.8333) > 0.001 {
		t.Fatalf("mean = %v", cs.Mean)
	}
	if math.Abs(cs.StdDev-1.3437) > 0.001 {
		t.Fatalf("stddev = %v", cs.StdDev)
	}
}

func TestBuildCategoryStatsOmissions(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var txs []models.Transaction
	// Too few samples.
	for i := 0; i < 4; i++ {
		txs = append(txs, expense(itoa(i), "travel", float64(10+i), base))
	}
	// Enough samples but zero variance.
	for i := 0; i < 6; i++ {
		txs = append(txs, expense(itoa(100+i), "rent", 1200, base))
	}
	// Income must not contribute.
	salary := expense("inc", "salary", 3000, base)
	salary.Type = models.EconIncome
	txs = append(txs, salary)

	stats := BuildCategoryStats(txs, 5)
	for cat, cs := range stats {
		if cs.Count < 5 || cs.StdDev <= 0 {
			t.Fatalf("retained invalid entry %q: %+v", cat, cs)
		}
	}
	if _, ok := stats["travel"]; ok {
		t.Fatalf("travel should be omitted (too few samples)")
	}
	if _, ok := stats["rent"]; ok {
		t.Fatalf("rent should be omitted (zero variance)")
	}
	if _, ok := stats["salary"]; ok {
		t.Fatalf("income category should not exist")
	}
}

func itoa(i int) string {
	return "tx" + strconv.Itoa(i)
}
