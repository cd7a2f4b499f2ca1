// Package adaptertest provides an in-memory fake warehouse adapter for tests.
package adaptertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/telemart-systems/telemart/internal/adapter"
	"github.com/telemart-systems/telemart/pkg/types"
)

// Compile-time interface satisfaction check.
var _ adapter.Adapter = (*Fake)(nil)

// Fake records executed statements and serves canned query results.
type Fake struct {
	mu        sync.Mutex
	executed  []string
	relations map[string]bool
	schemas   map[string]bool

	// FailOn makes Exec/CreateView/RebuildTable fail when the statement
	// mentions the given substring.
	FailOn string
	// IntResults maps a statement substring to the integer QueryInt returns.
	IntResults map[string]int64
	// RowResults maps a statement substring to canned rows for Query.
	RowResults map[string][][]any
}

// NewFake creates an empty fake adapter.
func NewFake() *Fake {
	return &Fake{
		relations:  make(map[string]bool),
		schemas:    make(map[string]bool),
		IntResults: make(map[string]int64),
		RowResults: make(map[string][][]any),
	}
}

// Executed returns a copy of all statements run so far, in order.
func (f *Fake) Executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

// ExecutedMatching returns executed statements containing the substring.
func (f *Fake) ExecutedMatching(substr string) []string {
	var out []string
	for _, s := range f.Executed() {
		if strings.Contains(s, substr) {
			out = append(out, s)
		}
	}
	return out
}

func (f *Fake) record(sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, sql)
	if f.FailOn != "" && strings.Contains(sql, f.FailOn) {
		return fmt.Errorf("fake adapter: forced failure on %q", f.FailOn)
	}
	return nil
}

// Exec records the statement, failing if it matches FailOn.
func (f *Fake) Exec(_ context.Context, sql string, _ ...any) error {
	return f.record(sql)
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("fake adapter: scan arity %d != row arity %d", len(dest), len(row))
	}
	for i, v := range row {
		if err := assign(dest[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

func assign(dest, v any) error {
	// A nil value stands in for SQL NULL. Like pgx, only pointer-valued
	// targets accept it.
	if v == nil {
		switch d := dest.(type) {
		case **string:
			*d = nil
		case *any:
			*d = nil
		default:
			return fmt.Errorf("fake adapter: cannot scan NULL into %T", dest)
		}
		return nil
	}
	switch d := dest.(type) {
	case **string:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("fake adapter: cannot scan %T into **string", v)
		}
		*d = &s
	case *string:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("fake adapter: cannot scan %T into *string", v)
		}
		*d = s
	case *int64:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("fake adapter: cannot scan %T into *int64", v)
		}
		*d = n
	case *int:
		n, ok := v.(int)
		if !ok {
			return fmt.Errorf("fake adapter: cannot scan %T into *int", v)
		}
		*d = n
	case *bool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("fake adapter: cannot scan %T into *bool", v)
		}
		*d = b
	case *float64:
		x, ok := v.(float64)
		if !ok {
			return fmt.Errorf("fake adapter: cannot scan %T into *float64", v)
		}
		*d = x
	case *any:
		*d = v
	default:
		return fmt.Errorf("fake adapter: unsupported scan target %T", dest)
	}
	return nil
}

// Query records the statement and serves the first RowResults entry whose key
// is a substring of it.
func (f *Fake) Query(_ context.Context, sql string, _ ...any) (adapter.Rows, error) {
	if err := f.record(sql); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for substr, rows := range f.RowResults {
		if strings.Contains(sql, substr) {
			return &fakeRows{rows: rows}, nil
		}
	}
	return &fakeRows{}, nil
}

// QueryInt records the statement and serves the first IntResults entry whose
// key is a substring of it, defaulting to 0.
func (f *Fake) QueryInt(_ context.Context, sql string, _ ...any) (int64, error) {
	if err := f.record(sql); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for substr, v := range f.IntResults {
		if strings.Contains(sql, substr) {
			return v, nil
		}
	}
	return 0, nil
}

// EnsureSchema records the schema creation.
func (f *Fake) EnsureSchema(_ context.Context, schema string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas[schema] = true
	return nil
}

// Schemas returns the schemas ensured so far.
func (f *Fake) Schemas() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for s := range f.schemas {
		out = append(out, s)
	}
	return out
}

// RelationExists reports relations registered via CreateView/RebuildTable.
func (f *Fake) RelationExists(_ context.Context, rel types.Relation) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relations[rel.String()], nil
}

// CreateView records the view DDL.
func (f *Fake) CreateView(_ context.Context, rel types.Relation, body string) error {
	if err := f.record(fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", rel, body)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relations[rel.String()] = true
	return nil
}

// RebuildTable records the drop-and-create DDL.
func (f *Fake) RebuildTable(_ context.Context, rel types.Relation, body string) error {
	if err := f.record(fmt.Sprintf("DROP TABLE IF EXISTS %s", rel)); err != nil {
		return err
	}
	if err := f.record(fmt.Sprintf("CREATE TABLE %s AS\n%s", rel, body)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relations[rel.String()] = true
	return nil
}

// Dialect returns "fake".
func (f *Fake) Dialect() string { return "fake" }

// Ping always succeeds.
func (f *Fake) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (f *Fake) Close() {}
