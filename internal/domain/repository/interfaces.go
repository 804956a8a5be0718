package repository

import (
	"context"
	"time"

	"SpendLens/internal/domain/models"
)

type TransactionStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Transaction, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

type TransactionStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, t *models.Transaction) error
	StoreBatch(ctx context.Context, txs []*models.Transaction) error
	// Query returns transactions with from <= date <= to in ascending
	// date order. A limit <= 0 means unlimited.
	Query(ctx context.Context, from, to time.Time, limit int) ([]models.Transaction, error)
	MarkDismissed(ctx context.Context, txID string, dismissed bool) error
	Health(ctx context.Context) error // ping
	Close() error
}

type ExclusionStore interface {
	Add(ctx context.Context, ex models.ExcludedMerchant) error
	Remove(ctx context.Context, normalizedName string) error
	List(ctx context.Context) ([]models.ExcludedMerchant, error)
}

type Metrics interface {
	RecordIngested(source string, n int)
	RecordError(kind string)
	RecordAnomaly(kind string)
	SetRecurring(frequency, status string, n int)
	RecordLatency(op string, seconds float64)
}
