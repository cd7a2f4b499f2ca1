// Package postgres implements the warehouse adapter for PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telemart-systems/telemart/internal/adapter"
	"github.com/telemart-systems/telemart/pkg/types"
)

// Adapter is a Postgres-backed warehouse adapter.
type Adapter struct {
	pool *pgxpool.Pool
}

// Compile-time interface satisfaction check.
var _ adapter.Adapter = (*Adapter)(nil)

// DSN builds a postgres connection string from config.
func DSN(cfg *types.PostgresConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password),
		cfg.Host, port, cfg.Database, sslmode)
}

// New creates a new Postgres adapter and verifies the connection.
func New(ctx context.Context, dsn string) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Adapter{pool: pool}, nil
}

// Exec runs a statement that returns no rows.
func (a *Adapter) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := a.pool.Exec(ctx, sql, args...)
	return err
}

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Err() error             { return r.rows.Err() }
func (r *pgxRows) Close()                 { r.rows.Close() }

// Query runs a statement returning multiple rows.
func (a *Adapter) Query(ctx context.Context, sql string, args ...any) (adapter.Rows, error) {
	rows, err := a.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

// QueryInt runs a statement returning a single integer. NULL scans as 0.
func (a *Adapter) QueryInt(ctx context.Context, sql string, args ...any) (int64, error) {
	var v *int64
	if err := a.pool.QueryRow(ctx, sql, args...).Scan(&v); err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

// EnsureSchema creates the schema if it does not exist.
func (a *Adapter) EnsureSchema(ctx context.Context, schema string) error {
	return a.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
}

// RelationExists reports whether a table or view exists.
func (a *Adapter) RelationExists(ctx context.Context, rel types.Relation) (bool, error) {
	var exists bool
	err := a.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
			UNION ALL
			SELECT 1 FROM information_schema.views
			WHERE table_schema = $1 AND table_name = $2
		)
	`, rel.Schema, rel.Name).Scan(&exists)
	return exists, err
}

// CreateView replaces a view with the given SELECT body.
func (a *Adapter) CreateView(ctx context.Context, rel types.Relation, body string) error {
	return a.Exec(ctx, fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", rel, body))
}

// RebuildTable drops and recreates a table from the given SELECT body.
// Full rebuild only; there are no incremental semantics.
func (a *Adapter) RebuildTable(ctx context.Context, rel types.Relation, body string) error {
	if err := a.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", rel)); err != nil {
		return err
	}
	return a.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS\n%s", rel, body))
}

// Dialect returns the adapter's SQL dialect name.
func (a *Adapter) Dialect() string { return "postgres" }

// Ping verifies the connection.
func (a *Adapter) Ping(ctx context.Context) error { return a.pool.Ping(ctx) }

// Close closes the connection pool.
func (a *Adapter) Close() { a.pool.Close() }
