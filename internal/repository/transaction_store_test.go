package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// queryRecorder captures every query the store executes so tests can
// assert on the generated SQL without a ClickHouse server.
type queryRecorder struct {
	mu      sync.Mutex
	queries []string
	args    [][]driver.Value
}

func (r *queryRecorder) add(q string, args []driver.Value) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.args = append(r.args, args)
	r.mu.Unlock()
}

func (r *queryRecorder) last() (string, []driver.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queries) == 0 {
		return "", nil
	}
	return r.queries[len(r.queries)-1], r.args[len(r.args)-1]
}

type recDriver struct{}

func (recDriver) Open(string) (driver.Conn, error) { return nil, errors.New("use the connector") }

type recConnector struct{ rec *queryRecorder }

func (c recConnector) Connect(context.Context) (driver.Conn, error) {
	return &recConn{rec: c.rec}, nil
}

func (c recConnector) Driver() driver.Driver { return recDriver{} }

type recConn struct{ rec *queryRecorder }

func (c *recConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c *recConn) Close() error                        { return nil }
func (c *recConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

func (c *recConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	vals := make([]driver.Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	c.rec.add(query, vals)
	return emptyRows{}, nil
}

type emptyRows struct{}

func (emptyRows) Columns() []string         { return nil }
func (emptyRows) Close() error              { return nil }
func (emptyRows) Next([]driver.Value) error { return io.EOF }

func recordingStore(rec *queryRecorder) (*sql.DB, *ClickHouseTransactionStore) {
	db := sql.OpenDB(recConnector{rec: rec})
	return db, NewClickHouseTransactionStore(db, "transactions").(*ClickHouseTransactionStore)
}

func TestQueryZeroLimitMeansUnlimited(t *testing.T) {
	rec := &queryRecorder{}
	db, store := recordingStore(rec)
	defer db.Close()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 3, 0)
	if _, err := store.Query(context.Background(), from, to, 0); err != nil {
		t.Fatalf("query: %v", err)
	}

	q, args := rec.last()
	if q == "" {
		t.Fatalf("no query executed")
	}
	// ClickHouse runs LIMIT 0 as "return nothing"; an unlimited query
	// must not carry the clause at all.
	if strings.Contains(q, "LIMIT") {
		t.Fatalf("limit<=0 must omit the LIMIT clause, got %q", q)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args (from, to), got %d", len(args))
	}
}

func TestQueryPositiveLimitIsBound(t *testing.T) {
	rec := &queryRecorder{}
	db, store := recordingStore(rec)
	defer db.Close()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := store.Query(context.Background(), from, from.AddDate(0, 1, 0), 25); err != nil {
		t.Fatalf("query: %v", err)
	}

	q, args := rec.last()
	if !strings.Contains(q, "LIMIT ?") {
		t.Fatalf("expected LIMIT placeholder, got %q", q)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args (from, to, limit), got %d", len(args))
	}
	if limit, ok := args[2].(int64); !ok || limit != 25 {
		t.Fatalf("expected limit arg 25, got %#v", args[2])
	}
}
