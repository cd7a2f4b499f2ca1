// Package duckdb implements the warehouse adapter for DuckDB, used for local
// development targets where no Postgres is available.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/telemart-systems/telemart/internal/adapter"
	"github.com/telemart-systems/telemart/pkg/types"
)

// Adapter is a DuckDB-backed warehouse adapter over a local database file.
type Adapter struct {
	db *sql.DB
}

// Compile-time interface satisfaction check.
var _ adapter.Adapter = (*Adapter)(nil)

// New opens (or creates) a DuckDB database at path and verifies it.
func New(ctx context.Context, path string) (*Adapter, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckdb open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("duckdb ping: %w", err)
	}
	return &Adapter{db: db}, nil
}

// Exec runs a statement that returns no rows.
func (a *Adapter) Exec(ctx context.Context, query string, args ...any) error {
	_, err := a.db.ExecContext(ctx, query, args...)
	return err
}

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool             { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Err() error             { return r.rows.Err() }
func (r *sqlRows) Close()                 { _ = r.rows.Close() }

// Query runs a statement returning multiple rows.
func (a *Adapter) Query(ctx context.Context, query string, args ...any) (adapter.Rows, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

// QueryInt runs a statement returning a single integer. NULL scans as 0.
func (a *Adapter) QueryInt(ctx context.Context, query string, args ...any) (int64, error) {
	var v sql.NullInt64
	if err := a.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return 0, err
	}
	return v.Int64, nil
}

// EnsureSchema creates the schema if it does not exist.
func (a *Adapter) EnsureSchema(ctx context.Context, schema string) error {
	return a.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
}

// RelationExists reports whether a table or view exists.
func (a *Adapter) RelationExists(ctx context.Context, rel types.Relation) (bool, error) {
	var count int64
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?
	`, rel.Schema, rel.Name).Scan(&count)
	return count > 0, err
}

// CreateView replaces a view with the given SELECT body.
func (a *Adapter) CreateView(ctx context.Context, rel types.Relation, body string) error {
	return a.Exec(ctx, fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", rel, body))
}

// RebuildTable drops and recreates a table from the given SELECT body.
func (a *Adapter) RebuildTable(ctx context.Context, rel types.Relation, body string) error {
	if err := a.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", rel)); err != nil {
		return err
	}
	return a.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS\n%s", rel, body))
}

// Dialect returns the adapter's SQL dialect name.
func (a *Adapter) Dialect() string { return "duckdb" }

// Ping verifies the connection.
func (a *Adapter) Ping(ctx context.Context) error { return a.db.PingContext(ctx) }

// Close closes the database handle.
func (a *Adapter) Close() { _ = a.db.Close() }
