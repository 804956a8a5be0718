package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"SpendLens/internal/domain/models"
	"SpendLens/internal/domain/repository"
)

// MemoryTransactionStore keeps transactions in process memory. Used by
// tests and by deployments without ClickHouse.
type MemoryTransactionStore struct {
	mu   sync.RWMutex
	byID map[string]models.Transaction
}

func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{byID: make(map[string]models.Transaction)}
}

func (s *MemoryTransactionStore) Init(ctx context.Context) error { return nil }

func (s *MemoryTransactionStore) Store(ctx context.Context, t *models.Transaction) error {
	return s.StoreBatch(ctx, []*models.Transaction{t})
}

func (s *MemoryTransactionStore) StoreBatch(_ context.Context, txs []*models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txs {
		if t == nil || t.ID == "" || t.Date.IsZero() {
			continue
		}
		s.byID[t.ID] = *t
	}
	return nil
}

func (s *MemoryTransactionStore) Query(_ context.Context, from, to time.Time, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	out := make([]models.Transaction, 0, len(s.byID))
	for _, t := range s.byID {
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryTransactionStore) MarkDismissed(_ context.Context, txID string, dismissed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[txID]
	if !ok {
		return nil
	}
	t.AnomalyDismissed = dismissed
	s.byID[txID] = t
	return nil
}

func (s *MemoryTransactionStore) Health(context.Context) error { return nil }

func (s *MemoryTransactionStore) Close() error { return nil }

var _ repository.TransactionStore = (*MemoryTransactionStore)(nil)
