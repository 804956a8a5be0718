package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"SpendLens/internal/domain/models"
	"SpendLens/internal/repository"
	"SpendLens/internal/services/insight"
	"SpendLens/internal/usecase"
	"SpendLens/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordIngested(string, int)       {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordAnomaly(string)             {}
func (nopMetrics) SetRecurring(string, string, int) {}
func (nopMetrics) RecordLatency(string, float64)    {}

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cfg := insight.DefaultConfig()
	svc := usecase.NewInsightService(
		repository.NewMemoryTransactionStore(),
		repository.NewMemoryExclusionStore(),
		insight.NewDetector(cfg.Anomaly),
		insight.NewRecurringDetector(cfg.Recurring),
		nil,
		nopMetrics{},
		log,
		"",
	)

	e := echo.New()
	NewInsightsEchoHandler(log, svc).RegisterRoutes(e)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ingestBody(t *testing.T) string {
	t.Helper()
	now := time.Now().UTC().AddDate(0, 0, -2)
	var payloads []models.TransactionPayload
	for i := 0; i < 5; i++ {
		payloads = append(payloads, models.TransactionPayload{
			ID:          fmt.Sprintf("nf%d", i),
			Date:        now.AddDate(0, i-4, 0).Format(time.RFC3339),
			Description: "NETFLIX.COM",
			Amount:      15.99,
			Direction:   "debit",
			Type:        "expense",
			CategoryID:  "subscriptions",
		})
	}
	b, err := json.Marshal(models.IngestTransactionsRequest{Transactions: payloads})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestIngestAndScanEndpoints(t *testing.T) {
	e := newTestRouter(t)

	rec := doJSON(e, http.MethodPost, "/api/transactions", ingestBody(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/api/scan?window=365d", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("scan status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status int               `json:"status"`
		Data   models.ScanResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode scan response: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("envelope status = %d", resp.Status)
	}
	if resp.Data.Transactions != 5 || len(resp.Data.Recurring) != 1 {
		t.Fatalf("scan result = %+v", resp.Data)
	}
}

func TestRecurringEndpointFiltersFrequency(t *testing.T) {
	e := newTestRouter(t)
	doJSON(e, http.MethodPost, "/api/transactions", ingestBody(t))

	rec := doJSON(e, http.MethodGet, "/api/recurring?window=365d&frequency=monthly", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("recurring status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Rows  []models.RecurringPayment `json:"rows"`
			Total int64                     `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode recurring response: %v", err)
	}
	if resp.Data.Total != 1 || len(resp.Data.Rows) != 1 {
		t.Fatalf("recurring rows = %+v", resp.Data)
	}

	rec = doJSON(e, http.MethodGet, "/api/recurring?window=365d&frequency=yearly", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode recurring response: %v", err)
	}
	if resp.Data.Total != 0 {
		t.Fatalf("yearly filter should match nothing, got %+v", resp.Data)
	}
}

func TestExclusionEndpoints(t *testing.T) {
	e := newTestRouter(t)
	doJSON(e, http.MethodPost, "/api/transactions", ingestBody(t))

	rec := doJSON(e, http.MethodPost, "/api/recurring/exclusions", `{"merchant_name":"Netflix.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("exclude status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/api/recurring?window=365d", "")
	var resp struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode recurring response: %v", err)
	}
	if resp.Data.Total != 0 {
		t.Fatalf("excluded merchant still served, total = %d", resp.Data.Total)
	}

	rec = doJSON(e, http.MethodDelete, "/api/recurring/exclusions/netflix", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove exclusion status = %d", rec.Code)
	}
}

func TestIngestValidation(t *testing.T) {
	e := newTestRouter(t)

	rec := doJSON(e, http.MethodPost, "/api/transactions", `{"transactions":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("envelope status = %d, want 400", resp.Status)
	}
}

func TestDismissEndpoint(t *testing.T) {
	e := newTestRouter(t)

	// Six steady dining charges and one outlier.
	now := time.Now().UTC().AddDate(0, 0, -5)
	var payloads []models.TransactionPayload
	for i, amt := range []float64{20, 22, 21, 23, 19, 20} {
		payloads = append(payloads, models.TransactionPayload{
			ID:          fmt.Sprintf("d%d", i),
			Date:        now.AddDate(0, 0, -i*3).Format(time.RFC3339),
			Description: fmt.Sprintf("LUNCH SPOT %d", i),
			Amount:      amt,
			Direction:   "debit",
			Type:        "expense",
			CategoryID:  "dining",
		})
	}
	payloads = append(payloads, models.TransactionPayload{
		ID: "big", Date: now.Format(time.RFC3339), Description: "FANCY DINNER",
		Amount: 100, Direction: "debit", Type: "expense", CategoryID: "dining",
	})
	b, _ := json.Marshal(models.IngestTransactionsRequest{Transactions: payloads})
	doJSON(e, http.MethodPost, "/api/transactions", string(b))

	rec := doJSON(e, http.MethodPost, "/api/anomalies/big/dismiss", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dismiss status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/api/anomalies?window=90d", "")
	var resp struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode anomalies: %v", err)
	}
	if resp.Data.Total != 0 {
		t.Fatalf("dismissed anomaly still listed, total = %d", resp.Data.Total)
	}
}
