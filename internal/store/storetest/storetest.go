// Package storetest provides an in-memory store implementation for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/telemart-systems/telemart/internal/store"
	"github.com/telemart-systems/telemart/pkg/types"
)

// Compile-time interface satisfaction check.
var _ store.Store = (*Memory)(nil)

// Memory is an in-memory store. Safe for concurrent use.
type Memory struct {
	mu           sync.Mutex
	runs         map[string]types.RunState
	runOrder     []string
	modelRuns    map[string][]types.ModelRun
	checkResults map[string][]types.CheckResult
	events       []types.Event
	migrated     bool

	// FailPuts makes every write return an error, for exercising
	// store-failure paths.
	FailPuts bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		runs:         make(map[string]types.RunState),
		modelRuns:    make(map[string][]types.ModelRun),
		checkResults: make(map[string][]types.CheckResult),
	}
}

func (m *Memory) failing() error {
	if m.FailPuts {
		return fmt.Errorf("storetest: forced write failure")
	}
	return nil
}

// PutRun upserts a run.
func (m *Memory) PutRun(_ context.Context, run types.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing(); err != nil {
		return err
	}
	if _, seen := m.runs[run.RunID]; !seen {
		m.runOrder = append(m.runOrder, run.RunID)
	}
	m.runs[run.RunID] = run
	return nil
}

// GetRun returns one run by ID.
func (m *Memory) GetRun(_ context.Context, runID string) (*types.RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return &run, nil
}

// ListRuns returns recent runs, most recently started first.
func (m *Memory) ListRuns(_ context.Context, limit int) ([]types.RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	out := make([]types.RunState, 0, len(m.runOrder))
	for _, id := range m.runOrder {
		out = append(out, m.runs[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PutModelRun upserts a per-model outcome.
func (m *Memory) PutModelRun(_ context.Context, mr types.ModelRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing(); err != nil {
		return err
	}
	existing := m.modelRuns[mr.RunID]
	for i, prev := range existing {
		if prev.Model == mr.Model {
			existing[i] = mr
			return nil
		}
	}
	m.modelRuns[mr.RunID] = append(existing, mr)
	return nil
}

// ListModelRuns returns per-model outcomes for a run in insertion order.
func (m *Memory) ListModelRuns(_ context.Context, runID string) ([]types.ModelRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ModelRun(nil), m.modelRuns[runID]...), nil
}

// PutCheckResult appends a check outcome.
func (m *Memory) PutCheckResult(_ context.Context, cr types.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing(); err != nil {
		return err
	}
	m.checkResults[cr.RunID] = append(m.checkResults[cr.RunID], cr)
	return nil
}

// ListCheckResults returns check outcomes for a run.
func (m *Memory) ListCheckResults(_ context.Context, runID string) ([]types.CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.CheckResult(nil), m.checkResults[runID]...), nil
}

// AppendEvent appends an audit event.
func (m *Memory) AppendEvent(_ context.Context, event types.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing(); err != nil {
		return err
	}
	m.events = append(m.events, event)
	return nil
}

// ListEvents returns events for a run, oldest first.
func (m *Memory) ListEvents(_ context.Context, runID string, limit int) ([]types.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []types.Event
	for _, ev := range m.events {
		if ev.RunID == runID {
			out = append(out, ev)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Events returns every appended event regardless of run.
func (m *Memory) Events() []types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Event(nil), m.events...)
}

// EventsOfKind returns appended events of one kind, oldest first.
func (m *Memory) EventsOfKind(kind types.EventKind) []types.Event {
	var out []types.Event
	for _, ev := range m.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Migrate marks the store migrated.
func (m *Memory) Migrate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.migrated = true
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() {}
