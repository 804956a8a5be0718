package usecase

import (
	"context"
	"fmt"
	"time"

	"SpendLens/internal/domain/models"
	drepo "SpendLens/internal/domain/repository"
)

// IngestProcessor validates incoming transactions and writes them to
// storage, tagging metrics with the ingest source.
type IngestProcessor struct {
	store   drepo.TransactionStore
	metrics drepo.Metrics
	rescan  *RescanScheduler
}

// NewIngestProcessor creates a new IngestProcessor instance.
func NewIngestProcessor(store drepo.TransactionStore, metrics drepo.Metrics) *IngestProcessor {
	return &IngestProcessor{store: store, metrics: metrics}
}

// WithRescan makes successful writes request a (debounced) rescan.
func (p *IngestProcessor) WithRescan(s *RescanScheduler) *IngestProcessor {
	p.rescan = s
	return p
}

// Process stores a single transaction.
func (p *IngestProcessor) Process(ctx context.Context, source string, t *models.Transaction) error {
	if t == nil {
		return fmt.Errorf("transaction is nil")
	}
	if t.ID == "" || t.Date.IsZero() {
		p.metrics.RecordError("ingest_invalid")
		return fmt.Errorf("transaction requires id and date")
	}

	start := time.Now()
	if err := p.store.Store(ctx, t); err != nil {
		p.metrics.RecordError("ingest_store")
		return fmt.Errorf("store transaction: %w", err)
	}
	p.metrics.RecordIngested(source, 1)
	p.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	p.rescan.Request(ctx, source)
	return nil
}

// ProcessBatch stores multiple transactions, skipping malformed rows.
func (p *IngestProcessor) ProcessBatch(ctx context.Context, source string, txs []*models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	valid := make([]*models.Transaction, 0, len(txs))
	for _, t := range txs {
		if t == nil || t.ID == "" || t.Date.IsZero() {
			p.metrics.RecordError("ingest_invalid")
			continue
		}
		valid = append(valid, t)
	}
	if len(valid) == 0 {
		return nil
	}

	start := time.Now()
	if err := p.store.StoreBatch(ctx, valid); err != nil {
		p.metrics.RecordError("ingest_store_batch")
		return fmt.Errorf("store batch: %w", err)
	}
	p.metrics.RecordIngested(source, len(valid))
	p.metrics.RecordLatency("ingest_batch", time.Since(start).Seconds())
	p.rescan.Request(ctx, source)
	return nil
}

// Close closes underlying resources if available.
func (p *IngestProcessor) Close() {
	if p.store != nil {
		_ = p.store.Close()
	}
}
