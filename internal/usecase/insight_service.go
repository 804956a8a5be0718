package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SpendLens/internal/domain/models"
	domrepo "SpendLens/internal/domain/repository"
	domsvc "SpendLens/internal/domain/service"
	"SpendLens/internal/services/insight"
	"SpendLens/pkg/logger"
	"SpendLens/pkg/util"
)

// ErrScanInFlight is returned when a scan is requested while another
// one is still running and force was not set.
var ErrScanInFlight = fmt.Errorf("scan already in flight")

// InsightService orchestrates scans over stored transactions and
// serves their results. One scan runs at a time; results replace the
// previous set wholesale.
type InsightService struct {
	store      domrepo.TransactionStore
	exclusions domrepo.ExclusionStore
	anomalies  domsvc.AnomalyScanner
	recurring  domsvc.RecurringDetector
	publisher  domrepo.Publisher
	metrics    domrepo.Metrics
	log        *logger.Logger

	resultsTopic string
	timeout      time.Duration

	mu       sync.RWMutex
	inFlight bool
	last     *models.ScanResult
}

// NewInsightService wires the scan orchestrator.
func NewInsightService(
	store domrepo.TransactionStore,
	exclusions domrepo.ExclusionStore,
	anomalies domsvc.AnomalyScanner,
	recurring domsvc.RecurringDetector,
	publisher domrepo.Publisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	resultsTopic string,
) *InsightService {
	return &InsightService{
		store:        store,
		exclusions:   exclusions,
		anomalies:    anomalies,
		recurring:    recurring,
		publisher:    publisher,
		metrics:      metrics,
		log:          log,
		resultsTopic: resultsTopic,
		timeout:      30 * time.Second,
	}
}

// RunScan loads the window's transactions and runs both detection
// passes. Returns ErrScanInFlight if a scan is already running.
func (s *InsightService) RunScan(ctx context.Context, window domrepo.Window) (*models.ScanResult, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrScanInFlight
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC()
	from, to := util.ClampRange(time.Time{}, time.Time{}, window.Duration(), now)

	start := time.Now()
	txs, err := s.store.Query(ctx, from, to, 0)
	if err != nil {
		s.metrics.RecordError("scan_query")
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	excluded, err := s.exclusions.List(ctx)
	if err != nil {
		// A scan without exclusions is still useful; log and continue.
		s.log.Warn("listing exclusions failed", logger.Error(err))
		excluded = nil
	}

	var (
		wg        sync.WaitGroup
		annotated []models.Transaction
		payments  []models.RecurringPayment
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		annotated = s.anomalies.Scan(txs)
	}()
	go func() {
		defer wg.Done()
		payments = s.recurring.Detect(txs, excluded, now)
	}()
	wg.Wait()

	res := &models.ScanResult{
		Window:        string(window),
		ScannedAt:     now,
		Transactions:  len(txs),
		Recurring:     payments,
		Annotated:     annotated,
		AnomalyCounts: make(map[models.AnomalyType]int),
	}
	for i := range annotated {
		if !annotated[i].IsAnomaly {
			continue
		}
		res.Anomalies = append(res.Anomalies, annotated[i])
		for _, at := range annotated[i].AnomalyTypes {
			res.AnomalyCounts[at]++
			s.metrics.RecordAnomaly(string(at))
		}
	}
	s.observeRecurring(payments)
	s.metrics.RecordLatency("scan", time.Since(start).Seconds())

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	s.publish(res)

	s.log.Info("scan complete",
		logger.String("window", string(window)),
		logger.Int("transactions", len(txs)),
		logger.Int("anomalies", len(res.Anomalies)),
		logger.Int("recurring", len(payments)),
	)
	return res, nil
}

// Scan serves POST /api/scan: reuse the last result unless it is
// missing, stale for the requested window, or force is set.
func (s *InsightService) Scan(ctx context.Context, req models.ScanRequest) (*models.ScanResult, error) {
	window := domrepo.NormalizeWindow(req.Window)

	if !req.Force {
		s.mu.RLock()
		last := s.last
		s.mu.RUnlock()
		if last != nil && last.Window == string(window) {
			return last, nil
		}
	}
	res, err := s.RunScan(ctx, window)
	if err == ErrScanInFlight {
		// Another caller is already scanning; serve what we have.
		s.mu.RLock()
		last := s.last
		s.mu.RUnlock()
		if last != nil {
			return last, nil
		}
	}
	return res, err
}

// Anomalies serves annotated transactions from the latest scan,
// running one first if none exists. The default view is undismissed
// findings; all=true returns every scanned transaction with its
// annotations.
func (s *InsightService) Anomalies(ctx context.Context, req models.AnomaliesRequest) ([]models.Transaction, error) {
	res, err := s.Scan(ctx, models.ScanRequest{Window: req.Window})
	if err != nil {
		return nil, err
	}

	src := res.Anomalies
	if req.All {
		src = res.Annotated
	}
	out := make([]models.Transaction, 0, len(src))
	for _, t := range src {
		if !req.All && t.AnomalyDismissed {
			continue
		}
		out = append(out, t)
		if req.Limit > 0 && len(out) >= req.Limit {
			break
		}
	}
	return out, nil
}

// DismissAnomaly persists the caller's dismissed decision and patches
// the cached result so subsequent reads agree without a rescan.
func (s *InsightService) DismissAnomaly(ctx context.Context, txID string, dismissed bool) error {
	if txID == "" {
		return fmt.Errorf("transaction id required")
	}
	if err := s.store.MarkDismissed(ctx, txID, dismissed); err != nil {
		s.metrics.RecordError("dismiss")
		return err
	}

	s.mu.Lock()
	if s.last != nil {
		for i := range s.last.Anomalies {
			if s.last.Anomalies[i].ID == txID {
				s.last.Anomalies[i].AnomalyDismissed = dismissed
			}
		}
		for i := range s.last.Annotated {
			if s.last.Annotated[i].ID == txID {
				s.last.Annotated[i].AnomalyDismissed = dismissed
			}
		}
	}
	s.mu.Unlock()
	return nil
}

// Recurring serves the recurring-payment set from the latest scan.
func (s *InsightService) Recurring(ctx context.Context, req models.RecurringRequest) ([]models.RecurringPayment, error) {
	res, err := s.Scan(ctx, models.ScanRequest{Window: req.Window})
	if err != nil {
		return nil, err
	}

	out := make([]models.RecurringPayment, 0, len(res.Recurring))
	for _, rp := range res.Recurring {
		if !req.IncludeInactive && !rp.IsActive {
			continue
		}
		if req.Frequency != "" && string(rp.Frequency) != req.Frequency {
			continue
		}
		out = append(out, rp)
	}
	return out, nil
}

// ExcludeMerchant records a "not recurring" decision and invalidates
// the cached result so the next read reflects it.
func (s *InsightService) ExcludeMerchant(ctx context.Context, merchantName string) (models.ExcludedMerchant, error) {
	normalized := insight.NormalizeMerchant(merchantName)
	if normalized == "" {
		return models.ExcludedMerchant{}, fmt.Errorf("merchant name %q normalizes to nothing", merchantName)
	}
	ex := models.ExcludedMerchant{NormalizedName: normalized, ExcludedAt: time.Now().UTC()}
	if err := s.exclusions.Add(ctx, ex); err != nil {
		s.metrics.RecordError("exclusion_add")
		return models.ExcludedMerchant{}, err
	}
	s.invalidate()
	return ex, nil
}

// RemoveExclusion deletes a previously recorded exclusion.
func (s *InsightService) RemoveExclusion(ctx context.Context, merchantName string) error {
	normalized := insight.NormalizeMerchant(merchantName)
	if normalized == "" {
		return fmt.Errorf("merchant name %q normalizes to nothing", merchantName)
	}
	if err := s.exclusions.Remove(ctx, normalized); err != nil {
		s.metrics.RecordError("exclusion_remove")
		return err
	}
	s.invalidate()
	return nil
}

// Exclusions lists the recorded decisions.
func (s *InsightService) Exclusions(ctx context.Context) ([]models.ExcludedMerchant, error) {
	return s.exclusions.List(ctx)
}

// Ingest serves POST /api/transactions.
func (s *InsightService) Ingest(ctx context.Context, req models.IngestTransactionsRequest) (int, error) {
	txs := make([]*models.Transaction, 0, len(req.Transactions))
	for i := range req.Transactions {
		t, err := PayloadToTransaction(&req.Transactions[i])
		if err != nil {
			return 0, err
		}
		txs = append(txs, t)
	}
	if err := s.store.StoreBatch(ctx, txs); err != nil {
		s.metrics.RecordError("ingest_http")
		return 0, fmt.Errorf("store batch: %w", err)
	}
	s.metrics.RecordIngested("http", len(txs))
	s.invalidate()
	return len(txs), nil
}

// Health reports storage reachability.
func (s *InsightService) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

func (s *InsightService) invalidate() {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
}

func (s *InsightService) observeRecurring(payments []models.RecurringPayment) {
	counts := make(map[[2]string]int)
	for _, rp := range payments {
		counts[[2]string{string(rp.Frequency), string(rp.Status)}]++
	}
	for _, f := range []models.Frequency{models.FreqWeekly, models.FreqMonthly, models.FreqQuarterly, models.FreqYearly} {
		for _, st := range []models.RecurringStatus{models.StatusActive, models.StatusInactive} {
			s.metrics.SetRecurring(string(f), string(st), counts[[2]string{string(f), string(st)}])
		}
	}
}

func (s *InsightService) publish(res *models.ScanResult) {
	if s.publisher == nil || s.resultsTopic == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.publisher.PublishMessage(ctx, s.resultsTopic, res); err != nil {
			s.metrics.RecordError("publish_results")
			s.log.Error("publishing scan results failed", logger.Error(err))
		}
	}()
}
