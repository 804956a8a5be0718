package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	domrepo "SpendLens/internal/domain/repository"
	"SpendLens/pkg/queue"
)

// RescanMessageType identifies queued rescan requests.
const RescanMessageType = "insight.rescan"

// RescanRequest is the queued payload asking for a fresh scan.
type RescanRequest struct {
	Window string `json:"window"`
	Reason string `json:"reason"`
}

// RescanJob pops rescan requests off the queue and runs a full scan.
// ErrScanInFlight is returned as-is so the queue's retry schedule
// re-delivers the message instead of interleaving two scans.
type RescanJob struct {
	svc *InsightService
}

func NewRescanJob(svc *InsightService) *RescanJob { return &RescanJob{svc: svc} }

func (j *RescanJob) Name() string { return "insight-rescan" }
func (j *RescanJob) Type() string { return RescanMessageType }

func (j *RescanJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[RescanRequest](payload)
	if err != nil {
		return fmt.Errorf("rescan payload: %w", err)
	}
	if _, err := j.svc.RunScan(ctx, domrepo.NormalizeWindow(req.Window)); err != nil {
		return fmt.Errorf("rescan (%s): %w", req.Reason, err)
	}
	return nil
}

// RescanScheduler debounces ingest-triggered rescans. Bursts of
// incoming transactions collapse into at most one queued request per
// debounce interval; everything past that is dropped, not queued.
type RescanScheduler struct {
	q        queue.QueueService
	debounce time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewRescanScheduler(q queue.QueueService, debounce time.Duration) *RescanScheduler {
	if debounce <= 0 {
		debounce = 30 * time.Second
	}
	return &RescanScheduler{q: q, debounce: debounce}
}

// Request asks for a rescan of the default window. Returns true when a
// message was actually enqueued.
func (s *RescanScheduler) Request(ctx context.Context, reason string) bool {
	if s == nil || s.q == nil {
		return false
	}
	now := time.Now()
	s.mu.Lock()
	if now.Sub(s.last) < s.debounce {
		s.mu.Unlock()
		return false
	}
	s.last = now
	s.mu.Unlock()

	err := s.q.PublishMessage(ctx, RescanMessageType, RescanRequest{
		Window: string(domrepo.DefaultWindow()),
		Reason: reason,
	})
	return err == nil
}
