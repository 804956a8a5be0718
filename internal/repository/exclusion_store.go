package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"SpendLens/internal/domain/models"
	"SpendLens/internal/domain/repository"
)

const exclusionHashKey = "spendlens:recurring:exclusions"

// RedisExclusionStore persists "not recurring" merchant decisions in a
// Redis hash keyed by normalized name.
type RedisExclusionStore struct {
	cli *redis.Client
}

func NewRedisExclusionStore(cli *redis.Client) *RedisExclusionStore {
	return &RedisExclusionStore{cli: cli}
}

func (s *RedisExclusionStore) Add(ctx context.Context, ex models.ExcludedMerchant) error {
	if ex.NormalizedName == "" {
		return fmt.Errorf("exclusion requires a normalized name")
	}
	if ex.ExcludedAt.IsZero() {
		ex.ExcludedAt = time.Now()
	}
	b, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("marshal exclusion: %w", err)
	}
	if err := s.cli.HSet(ctx, exclusionHashKey, ex.NormalizedName, b).Err(); err != nil {
		return fmt.Errorf("store exclusion: %w", err)
	}
	return nil
}

func (s *RedisExclusionStore) Remove(ctx context.Context, normalizedName string) error {
	if err := s.cli.HDel(ctx, exclusionHashKey, normalizedName).Err(); err != nil {
		return fmt.Errorf("remove exclusion: %w", err)
	}
	return nil
}

func (s *RedisExclusionStore) List(ctx context.Context) ([]models.ExcludedMerchant, error) {
	raw, err := s.cli.HGetAll(ctx, exclusionHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	out := make([]models.ExcludedMerchant, 0, len(raw))
	for name, b := range raw {
		var ex models.ExcludedMerchant
		if err := json.Unmarshal([]byte(b), &ex); err != nil {
			// Tolerate legacy plain-string entries.
			ex = models.ExcludedMerchant{NormalizedName: name}
		}
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedName < out[j].NormalizedName })
	return out, nil
}

// MemoryExclusionStore is the fallback when Redis is disabled, and the
// store used by tests.
type MemoryExclusionStore struct {
	mu sync.RWMutex
	m  map[string]models.ExcludedMerchant
}

func NewMemoryExclusionStore() *MemoryExclusionStore {
	return &MemoryExclusionStore{m: make(map[string]models.ExcludedMerchant)}
}

func (s *MemoryExclusionStore) Add(_ context.Context, ex models.ExcludedMerchant) error {
	if ex.NormalizedName == "" {
		return fmt.Errorf("exclusion requires a normalized name")
	}
	if ex.ExcludedAt.IsZero() {
		ex.ExcludedAt = time.Now()
	}
	s.mu.Lock()
	s.m[ex.NormalizedName] = ex
	s.mu.Unlock()
	return nil
}

func (s *MemoryExclusionStore) Remove(_ context.Context, normalizedName string) error {
	s.mu.Lock()
	delete(s.m, normalizedName)
	s.mu.Unlock()
	return nil
}

func (s *MemoryExclusionStore) List(_ context.Context) ([]models.ExcludedMerchant, error) {
	s.mu.RLock()
	out := make([]models.ExcludedMerchant, 0, len(s.m))
	for _, ex := range s.m {
		out = append(out, ex)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedName < out[j].NormalizedName })
	return out, nil
}

var _ repository.ExclusionStore = (*RedisExclusionStore)(nil)
var _ repository.ExclusionStore = (*MemoryExclusionStore)(nil)
