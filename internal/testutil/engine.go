package testutil

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
)

// NewEngine returns a connected in-memory DuckDB adapter that is closed when
// the test ends.
func NewEngine(t testing.TB) *duckdb.Adapter {
	t.Helper()
	db := duckdb.New(NewTestLogger(t))
	if err := db.Connect(context.Background(), adapter.Config{Type: "duckdb", Path: ":memory:"}); err != nil {
		t.Fatalf("failed to open dataset engine: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// MustExec runs statements against db, failing the test on error.
func MustExec(t testing.TB, db adapter.Adapter, statements ...string) {
	t.Helper()
	for _, s := range statements {
		if err := db.Exec(context.Background(), s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
}
