// Package cascade propagates build failures downstream.
//
// When a model fails to build, everything that selects from it directly or
// transitively can no longer produce correct results. This package tracks
// failed models and marks their dependents for skipping so a run fails fast
// instead of building facts on top of a broken staging layer.
package cascade

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/telemart-systems/telemart/internal/dag"
)

// Tracker records build failures and answers whether downstream models
// should be skipped. Safe for concurrent use by build workers.
type Tracker struct {
	graph  *dag.Graph
	logger *slog.Logger

	mu      sync.Mutex
	skipped map[string]string // model -> failed upstream that caused the skip
}

// NewTracker creates a failure tracker over the model graph.
func NewTracker(graph *dag.Graph, logger *slog.Logger) *Tracker {
	return &Tracker{
		graph:   graph,
		logger:  logger,
		skipped: make(map[string]string),
	}
}

// MarkFailed records a model failure and marks every transitive dependent
// for skipping. Returns the newly marked dependents in sorted order.
func (t *Tracker) MarkFailed(name string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var marked []string
	for _, dep := range t.graph.Dependents(name) {
		if _, already := t.skipped[dep]; already {
			continue
		}
		t.skipped[dep] = name
		marked = append(marked, dep)
	}
	sort.Strings(marked)

	if len(marked) > 0 {
		t.logger.Warn("skipping downstream models after failure",
			"failed", name, "skipped", marked)
	}
	return marked
}

// ShouldSkip reports whether a model has been marked for skipping, and if
// so which upstream failure caused it.
func (t *Tracker) ShouldSkip(name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cause, ok := t.skipped[name]
	return cause, ok
}

// Skipped returns all models currently marked for skipping, sorted.
func (t *Tracker) Skipped() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.skipped))
	for name := range t.skipped {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
