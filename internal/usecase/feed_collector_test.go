package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"SpendLens/internal/domain/models"
	"SpendLens/internal/repository"
)

// replayStream fails its first read the way the websocket client does,
// one error and then both channels close. Later reads deliver the
// queued transaction.
type replayStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
	tx         *models.Transaction
}

func (s *replayStream) Connect(ctx context.Context) error   { return nil }
func (s *replayStream) Subscribe(ctx context.Context) error { return nil }
func (s *replayStream) Close() error                        { return nil }
func (s *replayStream) IsConnected() bool                   { return true }

func (s *replayStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *replayStream) Read(ctx context.Context) (<-chan *models.Transaction, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	txs := make(chan *models.Transaction, 1)
	errs := make(chan error, 1)
	if s.reads == 1 {
		errs <- fmt.Errorf("read: connection reset")
		close(txs)
		close(errs)
		return txs, errs
	}
	txs <- s.tx
	return txs, errs
}

func (s *replayStream) counts() (reads, reconnects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.reconnects
}

func TestFeedCollectorResumesAfterStreamError(t *testing.T) {
	store := repository.NewMemoryTransactionStore()
	stream := &replayStream{tx: &models.Transaction{ID: "ws1", Date: time.Now().UTC()}}
	col := NewFeedCollector(stream, NewIngestProcessor(store, nopMetrics{}), nopMetrics{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := col.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, err := store.Query(ctx, time.Time{}, time.Now().UTC().Add(time.Hour), 0)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(got) == 1 && got[0].ID == "ws1" {
			break
		}
		select {
		case <-deadline:
			reads, reconnects := stream.counts()
			t.Fatalf("transaction never stored after stream error (reads=%d reconnects=%d)", reads, reconnects)
		case <-time.After(10 * time.Millisecond):
		}
	}

	reads, reconnects := stream.counts()
	if reads < 2 || reconnects < 1 {
		t.Fatalf("reads=%d reconnects=%d, want a reconnect and a fresh read", reads, reconnects)
	}
}
