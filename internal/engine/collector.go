package engine

import (
	"sort"
	"sync"

	"github.com/telemart-systems/telemart/pkg/types"
)

// collector gathers per-model outcomes from concurrent build workers.
type collector struct {
	runID string

	mu      sync.Mutex
	results map[string]types.ModelRun
}

func newCollector(runID string) *collector {
	return &collector{runID: runID, results: make(map[string]types.ModelRun)}
}

func (c *collector) add(mr types.ModelRun) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[mr.Model] = mr
}

func (c *collector) succeeded(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[name].Status == types.RunSuccess
}

// failures returns the names of failed models, sorted.
func (c *collector) failures() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for name, mr := range c.results {
		if mr.Status == types.RunFailed {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// models returns all outcomes ordered by start time, then name.
func (c *collector) models() []types.ModelRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ModelRun, 0, len(c.results))
	for _, mr := range c.results {
		out = append(out, mr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].Model < out[j].Model
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
