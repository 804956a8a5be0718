package insight

import (
	"testing"
	"time"

	"SpendLens/internal/domain/models"
)

func merchantTx(id, desc string, amount float64, date time.Time) models.Transaction {
	return models.Transaction{
		ID:          id,
		Date:        date,
		Description: desc,
		Amount:      -amount,
		Direction:   models.DirectionDebit,
		Type:        models.EconExpense,
		CategoryID:  "subscriptions",
	}
}

func monthlyNetflix() []models.Transaction {
	var txs []models.Transaction
	for i, d := range dates("2006-01-02",
		"2025-01-15", "2025-02-15", "2025-03-15", "2025-04-15", "2025-05-15") {
		txs = append(txs, merchantTx("nf"+itoa(i), "NETFLIX.COM", 15.99, d))
	}
	return txs
}

func TestDetectMonthlySubscription(t *testing.T) {
	d := NewRecurringDetector(DefaultRecurringConfig())
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	got := d.Detect(monthlyNetflix(), nil, now)
	if len(got) != 1 {
		t.Fatalf("detected %d payments, want 1", len(got))
	}
	rp := got[0]
	if rp.Frequency != models.FreqMonthly {
		t.Fatalf("frequency = %q", rp.Frequency)
	}
	if rp.Confidence < 0.7 {
		t.Fatalf("confidence = %v, want >= 0.7", rp.Confidence)
	}
	if !rp.IsActive || rp.Status != models.StatusActive {
		t.Fatalf("payment should be active, got %+v", rp)
	}
	if rp.OccurrenceCount != 5 || len(rp.TransactionIDs) != 5 {
		t.Fatalf("occurrences = %d, ids = %d", rp.OccurrenceCount, len(rp.TransactionIDs))
	}
	if rp.LatestAmount != 15.99 {
		t.Fatalf("latest amount = %v", rp.LatestAmount)
	}
	if rp.NextExpectedDate == nil {
		t.Fatalf("active payment should carry a next expected date")
	}
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !rp.NextExpectedDate.Equal(want) {
		t.Fatalf("next expected = %v, want %v", rp.NextExpectedDate, want)
	}
}

func TestDetectYearlyWithTwoOccurrences(t *testing.T) {
	d := NewRecurringDetector(DefaultRecurringConfig())
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		merchantTx("p1", "AMAZON PRIME MEMBERSHIP", 139, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		merchantTx("p2", "AMAZON PRIME MEMBERSHIP", 139, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}

	got := d.Detect(txs, nil, now)
	if len(got) != 1 {
		t.Fatalf("detected %d payments, want 1", len(got))
	}
	if got[0].Frequency != models.FreqYearly {
		t.Fatalf("frequency = %q, want yearly", got[0].Frequency)
	}
	if !got[0].IsActive {
		t.Fatalf("yearly payment seen last month should be active")
	}
}

func TestDetectSingleOccurrenceNeverQualifies(t *testing.T) {
	d := NewRecurringDetector(DefaultRecurringConfig())
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		merchantTx("one", "RANDOM SHOP", 50, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	if got := d.Detect(txs, nil, now); len(got) != 0 {
		t.Fatalf("detected %d payments from a single transaction", len(got))
	}
}

func TestDetectAppliesExclusions(t *testing.T) {
	d := NewRecurringDetector(DefaultRecurringConfig())
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	excluded := []models.ExcludedMerchant{{NormalizedName: "netflix"}}

	if got := d.Detect(monthlyNetflix(), excluded, now); len(got) != 0 {
		t.Fatalf("excluded merchant still detected: %+v", got)
	}
}

func TestDetectOrdersActiveFirst(t *testing.T) {
	d := NewRecurringDetector(DefaultRecurringConfig())
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	// A lapsed weekly charge with a larger amount must still sort after
	// the active subscription.
	txs := monthlyNetflix()
	for i, day := range dates("2006-01-02", "2025-01-03", "2025-01-10", "2025-01-17", "2025-01-24") {
		txs = append(txs, merchantTx("gym"+itoa(i), "IRON WORKS GYM", 25, day))
	}

	got := d.Detect(txs, nil, now)
	if len(got) != 2 {
		t.Fatalf("detected %d payments, want 2", len(got))
	}
	if !got[0].IsActive || got[0].MerchantName != "NETFLIX.COM" {
		t.Fatalf("first result should be the active subscription, got %+v", got[0])
	}
	if got[1].IsActive {
		t.Fatalf("lapsed weekly charge should be inactive")
	}
	if got[1].NextExpectedDate != nil {
		t.Fatalf("inactive payment should not predict a next date")
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := NewRecurringDetector(DefaultRecurringConfig())
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	txs := monthlyNetflix()

	first := d.Detect(txs, nil, now)
	second := d.Detect(txs, nil, now)
	if len(first) != len(second) {
		t.Fatalf("run sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.ID != b.ID || a.MerchantName != b.MerchantName || a.Frequency != b.Frequency ||
			a.Confidence != b.Confidence || a.IsActive != b.IsActive {
			t.Fatalf("runs diverge at %d: %+v vs %+v", i, a, b)
		}
	}
}

func TestNextExpectedDateClampsMonthEnd(t *testing.T) {
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	if got := NextExpectedDate(jan31, models.FreqMonthly); !got.Equal(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly from Jan 31 = %v", got)
	}
	leap := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if got := NextExpectedDate(leap, models.FreqMonthly); !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly from Jan 31 in a leap year = %v", got)
	}
	nov30 := time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)
	if got := NextExpectedDate(nov30, models.FreqQuarterly); !got.Equal(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("quarterly from Nov 30 = %v", got)
	}
	feb29 := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	if got := NextExpectedDate(feb29, models.FreqYearly); !got.Equal(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("yearly from Feb 29 = %v", got)
	}
	if got := NextExpectedDate(jan31, models.FreqWeekly); !got.Equal(time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("weekly from Jan 31 = %v", got)
	}
}

func TestPickDisplayName(t *testing.T) {
	if got := pickDisplayName([]string{"NETFLIX.COM SUBSCRIPTION", "NETFLIX.COM"}); got != "NETFLIX.COM" {
		t.Fatalf("display name = %q", got)
	}
	// Names of three characters or fewer lose to a longer spelling.
	if got := pickDisplayName([]string{"UBR", "UBER TRIP"}); got != "UBER TRIP" {
		t.Fatalf("display name = %q", got)
	}
	if got := pickDisplayName([]string{"ab", "abc"}); got != "ab" {
		t.Fatalf("fallback display name = %q", got)
	}
}
