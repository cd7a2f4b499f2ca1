package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// martGraph builds the staging -> dims -> facts shape used by the shipped mart.
func martGraph() *Graph {
	g := New()
	g.AddNode("stg_telegram_messages", nil)
	g.AddNode("dim_channels", []string{"stg_telegram_messages"})
	g.AddNode("dim_dates", []string{"stg_telegram_messages"})
	g.AddNode("fct_messages", []string{"stg_telegram_messages", "dim_channels", "dim_dates"})
	g.AddNode("fct_image_detections", []string{"stg_telegram_messages"})
	return g
}

func TestTopoOrder_DepsBeforeDependents(t *testing.T) {
	g := martGraph()
	order, err := g.TopoOrder()
	require.NoError(t, err)
	require.Len(t, order, 5)

	pos := make(map[string]int)
	for i, n := range order {
		pos[n] = i
	}
	for _, n := range g.Nodes() {
		for _, d := range g.Deps(n) {
			assert.Less(t, pos[d], pos[n], "%s must come after %s", n, d)
		}
	}
	assert.Equal(t, "stg_telegram_messages", order[0])
}

func TestTopoOrder_Deterministic(t *testing.T) {
	g := martGraph()
	first, err := g.TopoOrder()
	require.NoError(t, err)
	for range 10 {
		again, err := g.TopoOrder()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTopoOrder_CycleDetected(t *testing.T) {
	g := New()
	g.AddNode("a", []string{"b"})
	g.AddNode("b", []string{"a"})

	_, err := g.TopoOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidate_UnknownDependency(t *testing.T) {
	g := New()
	g.AddNode("fct_messages", []string{"dim_missing"})

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}

func TestLevels_IndependentDimensionsShareLevel(t *testing.T) {
	g := martGraph()
	levels, err := g.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 3)

	assert.Equal(t, []string{"stg_telegram_messages"}, levels[0])
	assert.Equal(t, []string{"dim_channels", "dim_dates", "fct_image_detections"}, levels[1])
	assert.Equal(t, []string{"fct_messages"}, levels[2])
}

func TestDependents_Transitive(t *testing.T) {
	g := martGraph()
	assert.Equal(t,
		[]string{"dim_channels", "dim_dates", "fct_image_detections", "fct_messages"},
		g.Dependents("stg_telegram_messages"))
	assert.Equal(t, []string{"fct_messages"}, g.Dependents("dim_channels"))
	assert.Empty(t, g.Dependents("fct_messages"))
}

func TestUpstreamClosure(t *testing.T) {
	g := martGraph()
	assert.Equal(t,
		[]string{"dim_channels", "dim_dates", "fct_messages", "stg_telegram_messages"},
		g.UpstreamClosure([]string{"fct_messages"}))
	assert.Equal(t,
		[]string{"fct_image_detections", "stg_telegram_messages"},
		g.UpstreamClosure([]string{"fct_image_detections"}))
}
