package insight

import (
	"testing"
	"time"

	"SpendLens/internal/domain/models"
)

func TestScanHighAmount(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var txs []models.Transaction
	for i, amt := range []float64{20, 22, 21, 23, 19, 20} {
		txs = append(txs, expense(itoa(i), "dining", amt, base.AddDate(0, 0, i*5)))
	}
	txs = append(txs, expense("big", "dining", 100, base.AddDate(0, 2, 0)))

	out := NewDetector(DefaultAnomalyConfig()).Scan(txs)

	big := findTx(t, out, "big")
	if !big.IsAnomaly || !hasType(big, models.AnomalyHighAmount) {
		t.Fatalf("expected high_amount on big: %+v", big)
	}
	det := findDetail(t, big, models.AnomalyHighAmount)
	if det.AmountDeviation < 50 {
		t.Fatalf("z-score = %v, want ~59", det.AmountDeviation)
	}
	if det.DuplicateOf != "" || det.FrequencyCount != 0 || det.FrequencyPeriod != "" {
		t.Fatalf("amount finding carries foreign fields: %+v", det)
	}
	for i := range out {
		if hasType(&out[i], models.AnomalyHighAmount) && hasType(&out[i], models.AnomalyLowAmount) {
			t.Fatalf("tx %s carries both high and low amount findings", out[i].ID)
		}
	}
}

func TestScanDuplicate(t *testing.T) {
	day1 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		expense("a", "coffee", 4.50, day1),
		expense("b", "coffee", 4.50, day1.AddDate(0, 0, 1)),
	}
	txs[0].Description = "STARBUCKS #123"
	txs[1].Description = "STARBUCKS #456"

	out := NewDetector(DefaultAnomalyConfig()).Scan(txs)

	second := findTx(t, out, "b")
	if !hasType(second, models.AnomalyDuplicate) {
		t.Fatalf("second charge not flagged duplicate: %+v", second)
	}
	det := findDetail(t, second, models.AnomalyDuplicate)
	if det.DuplicateOf != "a" {
		t.Fatalf("duplicateOf = %q, want a", det.DuplicateOf)
	}
	if det.AmountDeviation != 0 {
		t.Fatalf("duplicate finding carries amount deviation: %+v", det)
	}
}

func TestScanDuplicateRespectsWindowAndAmount(t *testing.T) {
	day1 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		expense("a", "coffee", 4.50, day1),
		expense("b", "coffee", 4.50, day1.AddDate(0, 0, 3)), // outside 48h
		expense("c", "coffee", 6.00, day1.Add(time.Hour)),   // amount differs
	}
	for i := range txs {
		txs[i].Description = "STARBUCKS #1"
	}

	out := NewDetector(DefaultAnomalyConfig()).Scan(txs)
	for i := range out {
		if hasType(&out[i], models.AnomalyDuplicate) {
			t.Fatalf("unexpected duplicate on %s", out[i].ID)
		}
	}
}

func TestScanFrequency24h(t *testing.T) {
	base := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		expense("f1", "coffee", 3.10, base),
		expense("f2", "coffee", 4.20, base.Add(2*time.Hour)),
		expense("f3", "coffee", 5.30, base.Add(5*time.Hour)),
	}
	for i := range txs {
		txs[i].Description = "STARBUCKS COFFEE"
	}

	out := NewDetector(DefaultAnomalyConfig()).Scan(txs)
	last := findTx(t, out, "f3")
	if !hasType(last, models.AnomalyUnusualFrequency) {
		t.Fatalf("expected unusual_frequency on f3: %+v", last)
	}
	det := findDetail(t, last, models.AnomalyUnusualFrequency)
	if det.FrequencyPeriod != models.Period24h || det.FrequencyCount != 3 {
		t.Fatalf("detail = %+v, want 24h count 3", det)
	}
}

func TestScanFrequency7d(t *testing.T) {
	base := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	var txs []models.Transaction
	for i := 0; i < 5; i++ {
		tx := expense(itoa(i), "rides", float64(10+3*i), base.AddDate(0, 0, i))
		tx.Description = "UBER TRIP"
		txs = append(txs, tx)
	}

	out := NewDetector(DefaultAnomalyConfig()).Scan(txs)
	last := findTx(t, out, itoa(4))
	det := findDetail(t, last, models.AnomalyUnusualFrequency)
	if det.FrequencyPeriod != models.Period7d || det.FrequencyCount != 5 {
		t.Fatalf("detail = %+v, want 7d count 5", det)
	}
}

func TestScanSkipsMalformedAndNonExpense(t *testing.T) {
	base := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	noDate := expense("nodate", "coffee", 4.50, time.Time{})
	noDate.Description = "STARBUCKS #1"
	withDate := expense("ok", "coffee", 4.50, base)
	withDate.Description = "STARBUCKS #1"
	income := expense("inc", "salary", 4.50, base)
	income.Type = models.EconIncome
	income.Description = "STARBUCKS #1"

	out := NewDetector(DefaultAnomalyConfig()).Scan([]models.Transaction{noDate, withDate, income})
	for i := range out {
		if out[i].IsAnomaly {
			t.Fatalf("nothing should be flagged, got %+v", out[i])
		}
	}
}

func TestScanPreservesInputAndDismissed(t *testing.T) {
	day1 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		expense("a", "coffee", 4.50, day1),
		expense("b", "coffee", 4.50, day1.Add(time.Hour)),
	}
	txs[0].Description = "STARBUCKS #123"
	txs[1].Description = "STARBUCKS #123"
	txs[1].AnomalyDismissed = true

	out := NewDetector(DefaultAnomalyConfig()).Scan(txs)

	if txs[0].IsAnomaly || txs[1].IsAnomaly {
		t.Fatalf("input slice was mutated")
	}
	if !findTx(t, out, "b").AnomalyDismissed {
		t.Fatalf("dismissed flag not preserved")
	}
}

func findTx(t *testing.T, txs []models.Transaction, id string) *models.Transaction {
	t.Helper()
	for i := range txs {
		if txs[i].ID == id {
			return &txs[i]
		}
	}
	t.Fatalf("transaction %q not found", id)
	return nil
}

func hasType(tx *models.Transaction, at models.AnomalyType) bool {
	for _, a := range tx.AnomalyTypes {
		if a == at {
			return true
		}
	}
	return false
}

func findDetail(t *testing.T, tx *models.Transaction, at models.AnomalyType) models.AnomalyDetail {
	t.Helper()
	for _, d := range tx.AnomalyDetails {
		if d.Type == at {
			return d
		}
	}
	t.Fatalf("no %s detail on %s", at, tx.ID)
	return models.AnomalyDetail{}
}
