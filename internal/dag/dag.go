// Package dag implements the dependency graph over named model declarations:
// topological ordering, cycle detection, and downstream traversal.
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed acyclic graph of model names. Edges point from a model
// to the models that depend on it (upstream -> downstream).
type Graph struct {
	nodes map[string]bool
	deps  map[string][]string // node -> upstream dependencies
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]bool),
		deps:  make(map[string][]string),
	}
}

// AddNode registers a node with its upstream dependencies. Re-adding a node
// replaces its dependency list.
func (g *Graph) AddNode(name string, deps []string) {
	g.nodes[name] = true
	g.deps[name] = append([]string(nil), deps...)
}

// Nodes returns all node names in sorted order.
func (g *Graph) Nodes() []string {
	names := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Deps returns the direct upstream dependencies of a node.
func (g *Graph) Deps(name string) []string {
	return g.deps[name]
}

// Validate checks that every dependency resolves to a known node and that the
// graph is acyclic.
func (g *Graph) Validate() error {
	for _, n := range g.Nodes() {
		for _, d := range g.deps[n] {
			if !g.nodes[d] {
				return fmt.Errorf("model %q references unknown model %q", n, d)
			}
		}
	}
	_, err := g.TopoOrder()
	return err
}

// TopoOrder returns the nodes in dependency order: every node appears after
// all of its upstream dependencies. Ties break alphabetically so the order is
// deterministic. Returns an error if the graph contains a cycle.
func (g *Graph) TopoOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for n := range g.nodes {
		indegree[n] = 0
	}
	for n, deps := range g.deps {
		for _, d := range deps {
			if !g.nodes[d] {
				continue // caught by Validate
			}
			indegree[n]++
			dependents[d] = append(dependents[d], n)
		}
	}

	var ready []string
	for n, deg := range indegree {
		if deg == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var unlocked []string
		for _, d := range dependents[n] {
			indegree[d]--
			if indegree[d] == 0 {
				unlocked = append(unlocked, d)
			}
		}
		sort.Strings(unlocked)
		ready = mergeSorted(ready, unlocked)
	}

	if len(order) != len(g.nodes) {
		var stuck []string
		for n, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, n)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("dependency cycle involving models %v", stuck)
	}
	return order, nil
}

// Levels groups nodes into execution waves: level 0 has no dependencies, and
// each node sits one level below its deepest dependency. Models within a level
// are independent of each other and may run concurrently; no model in a level
// depends on anything outside earlier levels.
func (g *Graph) Levels() ([][]string, error) {
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(order))
	maxDepth := 0
	for _, n := range order {
		d := 0
		for _, up := range g.deps[n] {
			if depth[up]+1 > d {
				d = depth[up] + 1
			}
		}
		depth[n] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([][]string, maxDepth+1)
	for _, n := range order {
		levels[depth[n]] = append(levels[depth[n]], n)
	}
	for _, lvl := range levels {
		sort.Strings(lvl)
	}
	return levels, nil
}

// Dependents returns the transitive downstream dependents of a node, sorted.
func (g *Graph) Dependents(name string) []string {
	direct := make(map[string][]string, len(g.nodes))
	for n, deps := range g.deps {
		for _, d := range deps {
			direct[d] = append(direct[d], n)
		}
	}

	seen := make(map[string]bool)
	stack := []string{name}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range direct[n] {
			if !seen[d] {
				seen[d] = true
				stack = append(stack, d)
			}
		}
	}

	result := make([]string, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

// UpstreamClosure returns the given nodes plus all of their transitive
// upstream dependencies, sorted. Used by --select to build a model together
// with everything it needs.
func (g *Graph) UpstreamClosure(names []string) []string {
	seen := make(map[string]bool)
	stack := append([]string(nil), names...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.deps[n]...)
	}

	result := make([]string, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

// mergeSorted merges two sorted string slices into one sorted slice.
func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
