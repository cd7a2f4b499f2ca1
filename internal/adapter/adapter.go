// Package adapter defines the warehouse backend interface for telemart.
package adapter

import (
	"context"

	"github.com/telemart-systems/telemart/pkg/types"
)

// Rows is a minimal cursor over a query result, satisfied by both pgx and
// database/sql row sets via thin wrappers.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Adapter is the warehouse backend interface. Postgres is the primary target;
// DuckDB serves local development.
type Adapter interface {
	// Exec runs a statement that returns no rows (DDL, CREATE ... AS).
	Exec(ctx context.Context, sql string, args ...any) error
	// Query runs a statement returning multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	// QueryInt runs a statement returning a single integer value. A NULL
	// result scans as 0.
	QueryInt(ctx context.Context, sql string, args ...any) (int64, error)

	// EnsureSchema creates the target schema if it does not exist.
	EnsureSchema(ctx context.Context, schema string) error
	// RelationExists reports whether a table or view exists.
	RelationExists(ctx context.Context, rel types.Relation) (bool, error)

	// CreateView replaces a view with the given SELECT body.
	CreateView(ctx context.Context, rel types.Relation, body string) error
	// RebuildTable drops and recreates a table from the given SELECT body.
	RebuildTable(ctx context.Context, rel types.Relation, body string) error

	Dialect() string
	Ping(ctx context.Context) error
	Close()
}
