package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SpendLens/internal/domain/models"
	domrepo "SpendLens/internal/domain/repository"
)

// Proc is the minimal downstream interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, source string, t *models.Transaction) error
}

// IngestPipeline sits between the transaction feed and storage. It
// validates, drops re-delivered ids inside a dedupe window, and
// buffers when the downstream store is unavailable.
type IngestPipeline struct {
	proc      Proc
	metrics   domrepo.Metrics
	source    string
	dedupeTTL time.Duration
	bufSize   int
	bufCh     chan *models.Transaction
	stopCh    chan struct{}
	started   bool
	mu        sync.Mutex
	seen      map[string]time.Time // transaction id -> last accepted time
	lastSweep time.Time
}

type PipelineOption func(*IngestPipeline)

// WithDedupeTTL sets how long a transaction id suppresses re-delivery.
func WithDedupeTTL(d time.Duration) PipelineOption {
	return func(p *IngestPipeline) {
		if d > 0 {
			p.dedupeTTL = d
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewIngestPipeline creates a new pipeline for the named source.
func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, source string, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:      proc,
		metrics:   metrics,
		source:    source,
		dedupeTTL: 5 * time.Minute,
		bufSize:   1000,
		bufCh:     make(chan *models.Transaction, 1000),
		stopCh:    make(chan struct{}),
		seen:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.Transaction, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered transactions.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case t := <-p.bufCh:
				if t == nil {
					continue
				}
				if err := p.proc.Process(ctx, p.source, t); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- t:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and forwards a transaction downstream, buffering
// on errors. Duplicate deliveries inside the dedupe window are dropped.
func (p *IngestPipeline) Process(ctx context.Context, t *models.Transaction) error {
	start := time.Now()
	if err := validateTransaction(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.accept(t.ID, start) {
		p.metrics.RecordError("pipeline_duplicate_delivery")
		return nil
	}

	if err := p.proc.Process(ctx, p.source, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- t:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateTransaction(t *models.Transaction) error {
	if t == nil {
		return fmt.Errorf("transaction nil")
	}
	if t.ID == "" {
		return fmt.Errorf("id empty")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("date invalid")
	}
	return nil
}

// accept records the id and reports whether this delivery is the first
// inside the dedupe window. Stale entries are swept lazily.
func (p *IngestPipeline) accept(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if last, ok := p.seen[id]; ok && now.Sub(last) < p.dedupeTTL {
		return false
	}
	p.seen[id] = now

	if now.Sub(p.lastSweep) > p.dedupeTTL {
		for k, v := range p.seen {
			if now.Sub(v) >= p.dedupeTTL {
				delete(p.seen, k)
			}
		}
		p.lastSweep = now
	}
	return true
}
