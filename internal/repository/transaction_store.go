package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SpendLens/internal/domain/models"
	"SpendLens/internal/domain/repository"
)

// ClickHouseTransactionStore implements TransactionStore on ClickHouse.
type ClickHouseTransactionStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseTransactionStore creates ClickHouse-backed storage.
func NewClickHouseTransactionStore(db *sql.DB, table string) repository.TransactionStore {
	return &ClickHouseTransactionStore{db: db, table: table}
}

// Schema returns the idempotent DDL for the transaction table. The
// ReplacingMergeTree collapses re-ingested rows by id, keeping the
// newest ingested_at version.
func Schema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id String,
		date DateTime,
		description String,
		amount Float64,
		direction LowCardinality(String),
		type LowCardinality(String),
		category_id LowCardinality(String),
		merchant_name String,
		dismissed UInt8,
		ingested_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(ingested_at)
	ORDER BY (date, id)`, table)}
}

func (s *ClickHouseTransactionStore) Init(ctx context.Context) error {
	for _, stmt := range Schema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init transaction schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseTransactionStore) Store(ctx context.Context, t *models.Transaction) error {
	return s.StoreBatch(ctx, []*models.Transaction{t})
}

func (s *ClickHouseTransactionStore) StoreBatch(ctx context.Context, txs []*models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips. Chunked at 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(txs); start += chunkSize {
		end := start + chunkSize
		if end > len(txs) {
			end = len(txs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, t := range txs[start:end] {
			if t == nil || t.ID == "" || t.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				t.ID,
				t.Date,
				t.Description,
				t.Amount,
				string(t.Direction),
				t.Type.String(),
				t.CategoryID,
				t.MerchantName,
				boolToUint8(t.AnomalyDismissed),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (id, date, description, amount, direction, type, category_id, merchant_name, dismissed) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert transactions: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseTransactionStore) Query(ctx context.Context, from, to time.Time, limit int) ([]models.Transaction, error) {
	q := fmt.Sprintf(`SELECT id, date, description, amount, direction, type, category_id, merchant_name, dismissed
		FROM %s FINAL WHERE date >= ? AND date <= ? ORDER BY date ASC, id ASC`, s.table)
	args := []interface{}{from, to}
	// limit<=0 means unlimited; ClickHouse would treat LIMIT 0 as
	// "return nothing", so the clause is only added for positive limits.
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			t         models.Transaction
			direction string
			econ      string
			dismissed uint8
		)
		if err := rows.Scan(&t.ID, &t.Date, &t.Description, &t.Amount, &direction, &econ, &t.CategoryID, &t.MerchantName, &dismissed); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		t.Direction = models.Direction(direction)
		t.Type = models.ParseEconType(econ)
		t.AnomalyDismissed = dismissed != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *ClickHouseTransactionStore) MarkDismissed(ctx context.Context, txID string, dismissed bool) error {
	q := fmt.Sprintf("ALTER TABLE %s UPDATE dismissed = ? WHERE id = ?", s.table)
	if _, err := s.db.ExecContext(ctx, q, boolToUint8(dismissed), txID); err != nil {
		return fmt.Errorf("mark dismissed: %w", err)
	}
	return nil
}

func (s *ClickHouseTransactionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTransactionStore) Close() error {
	return nil // Pool is owned by pkg/clickhouse
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
