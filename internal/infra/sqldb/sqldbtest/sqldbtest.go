// Package sqldbtest provides an in-memory store for tests.
package sqldbtest

import (
	"context"
	"testing"

	"polls-service/internal/infra/sqldb"
)

// NewStore returns a store over a fresh in-memory SQLite database with the schema created.
func NewStore(t *testing.T) *sqldb.Store {
	t.Helper()

	db, err := sqldb.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := sqldb.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return sqldb.NewStore(db)
}
