package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"SpendLens/internal/domain/models"
	"SpendLens/internal/repository"
	"SpendLens/internal/services/insight"
	"SpendLens/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordIngested(string, int)       {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordAnomaly(string)             {}
func (nopMetrics) SetRecurring(string, string, int) {}
func (nopMetrics) RecordLatency(string, float64)    {}

func newTestService(t *testing.T) *InsightService {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cfg := insight.DefaultConfig()
	return NewInsightService(
		repository.NewMemoryTransactionStore(),
		repository.NewMemoryExclusionStore(),
		insight.NewDetector(cfg.Anomaly),
		insight.NewRecurringDetector(cfg.Recurring),
		nil,
		nopMetrics{},
		log,
		"",
	)
}

func payload(id, desc string, amount float64, date time.Time) models.TransactionPayload {
	return models.TransactionPayload{
		ID:          id,
		Date:        date.Format(time.RFC3339),
		Description: desc,
		Amount:      amount,
		Direction:   "debit",
		Type:        "expense",
		CategoryID:  "subscriptions",
	}
}

func seedSubscription(t *testing.T, svc *InsightService, now time.Time) {
	t.Helper()
	var ps []models.TransactionPayload
	for i := 0; i < 5; i++ {
		ps = append(ps, payload(fmt.Sprintf("nf%d", i), "NETFLIX.COM", 15.99, now.AddDate(0, i-4, 0)))
	}
	n, err := svc.Ingest(context.Background(), models.IngestTransactionsRequest{Transactions: ps})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if n != 5 {
		t.Fatalf("ingested %d, want 5", n)
	}
}

func TestScanFindsRecurring(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC().AddDate(0, 0, -2)
	seedSubscription(t, svc, now)

	res, err := svc.Scan(context.Background(), models.ScanRequest{Window: "365d"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Transactions != 5 {
		t.Fatalf("scanned %d transactions, want 5", res.Transactions)
	}
	if len(res.Recurring) != 1 {
		t.Fatalf("recurring = %d, want 1", len(res.Recurring))
	}
	if res.Recurring[0].Frequency != models.FreqMonthly {
		t.Fatalf("frequency = %q", res.Recurring[0].Frequency)
	}
}

func TestScanReusesCachedResult(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC().AddDate(0, 0, -2)
	seedSubscription(t, svc, now)

	first, err := svc.Scan(context.Background(), models.ScanRequest{Window: "365d"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	second, err := svc.Scan(context.Background(), models.ScanRequest{Window: "365d"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if first != second {
		t.Fatalf("expected the cached result to be reused")
	}

	forced, err := svc.Scan(context.Background(), models.ScanRequest{Window: "365d", Force: true})
	if err != nil {
		t.Fatalf("forced scan: %v", err)
	}
	if forced == second {
		t.Fatalf("force should rerun the scan")
	}
}

func TestDismissAnomalyPatchesResult(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC().AddDate(0, 0, -5)

	var ps []models.TransactionPayload
	for i, amt := range []float64{20, 22, 21, 23, 19, 20} {
		ps = append(ps, payload(fmt.Sprintf("d%d", i), fmt.Sprintf("LUNCH SPOT %d", i), amt, now.AddDate(0, 0, -i*3)))
	}
	ps = append(ps, payload("big", "FANCY DINNER", 100, now))
	for i := range ps {
		ps[i].CategoryID = "dining"
	}
	if _, err := svc.Ingest(context.Background(), models.IngestTransactionsRequest{Transactions: ps}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	found, err := svc.Anomalies(context.Background(), models.AnomaliesRequest{Window: "90d", Limit: 100})
	if err != nil {
		t.Fatalf("anomalies: %v", err)
	}
	if len(found) != 1 || found[0].ID != "big" {
		t.Fatalf("anomalies = %+v, want just the outlier", found)
	}

	if err := svc.DismissAnomaly(context.Background(), "big", true); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	found, err = svc.Anomalies(context.Background(), models.AnomaliesRequest{Window: "90d", Limit: 100})
	if err != nil {
		t.Fatalf("anomalies: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("dismissed anomaly still listed: %+v", found)
	}

	all, err := svc.Anomalies(context.Background(), models.AnomaliesRequest{Window: "90d", All: true, Limit: 100})
	if err != nil {
		t.Fatalf("anomalies all: %v", err)
	}
	var dismissed *models.Transaction
	for i := range all {
		if all[i].ID == "big" {
			dismissed = &all[i]
		}
	}
	if dismissed == nil || !dismissed.AnomalyDismissed {
		t.Fatalf("all view should keep the dismissed flag: %+v", all)
	}
}

func TestAnomaliesAllReturnsEveryTransaction(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC().AddDate(0, 0, -5)

	var ps []models.TransactionPayload
	for i, amt := range []float64{20, 22, 21, 23, 19, 20} {
		ps = append(ps, payload(fmt.Sprintf("d%d", i), fmt.Sprintf("LUNCH SPOT %d", i), amt, now.AddDate(0, 0, -i*3)))
	}
	ps = append(ps, payload("big", "FANCY DINNER", 100, now))
	for i := range ps {
		ps[i].CategoryID = "dining"
	}
	if _, err := svc.Ingest(context.Background(), models.IngestTransactionsRequest{Transactions: ps}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	all, err := svc.Anomalies(context.Background(), models.AnomaliesRequest{Window: "90d", All: true, Limit: 100})
	if err != nil {
		t.Fatalf("anomalies all: %v", err)
	}
	if len(all) != len(ps) {
		t.Fatalf("all view returned %d transactions, want %d", len(all), len(ps))
	}
	flagged := 0
	for _, tx := range all {
		if tx.IsAnomaly {
			flagged++
		}
	}
	if flagged != 1 {
		t.Fatalf("flagged = %d, want 1", flagged)
	}

	found, err := svc.Anomalies(context.Background(), models.AnomaliesRequest{Window: "90d", Limit: 100})
	if err != nil {
		t.Fatalf("anomalies: %v", err)
	}
	if len(found) != 1 || found[0].ID != "big" {
		t.Fatalf("default view = %+v, want just the outlier", found)
	}
}

func TestExclusionRemovesRecurring(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC().AddDate(0, 0, -2)
	seedSubscription(t, svc, now)

	ex, err := svc.ExcludeMerchant(context.Background(), "Netflix.com")
	if err != nil {
		t.Fatalf("exclude: %v", err)
	}
	if ex.NormalizedName != "netflix" {
		t.Fatalf("normalized name = %q", ex.NormalizedName)
	}

	rps, err := svc.Recurring(context.Background(), models.RecurringRequest{Window: "365d", IncludeInactive: true})
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	if len(rps) != 0 {
		t.Fatalf("excluded merchant still reported: %+v", rps)
	}

	if err := svc.RemoveExclusion(context.Background(), "Netflix.com"); err != nil {
		t.Fatalf("remove exclusion: %v", err)
	}
	rps, err = svc.Recurring(context.Background(), models.RecurringRequest{Window: "365d", IncludeInactive: true})
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	if len(rps) != 1 {
		t.Fatalf("recurring after unexclude = %d, want 1", len(rps))
	}
}
