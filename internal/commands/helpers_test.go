package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart-systems/telemart/internal/model"
	"github.com/telemart-systems/telemart/pkg/types"
)

func TestOpenAdapter_UnsupportedTarget(t *testing.T) {
	_, err := openAdapter(context.Background(), &types.ProjectConfig{Target: "snowflake"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported target")
}

func TestOpenStore_NotConfigured(t *testing.T) {
	st, err := openStore(context.Background(), &types.ProjectConfig{})
	require.NoError(t, err)
	assert.Nil(t, st)
}

// The init scaffold must load back as a valid five-model project.
func TestInit_ScaffoldLoadsAsValidProject(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "telegram-mart")
	require.NoError(t, runInit(project))

	for _, f := range []string{
		"telemart.yaml",
		".env.example",
		"models/staging/stg_telegram_messages.sql",
		"models/staging/schema.yml",
		"models/marts/fct_image_detections.sql",
		"models/marts/schema.yml",
	} {
		_, err := os.Stat(filepath.Join(project, f))
		require.NoError(t, err, "missing %s", f)
	}

	reg := model.NewRegistry("telegram_schema")
	require.NoError(t, reg.LoadDir(filepath.Join(project, "models/staging")))
	require.NoError(t, reg.LoadDir(filepath.Join(project, "models/marts")))
	require.NoError(t, reg.Validate())
	assert.Equal(t, 5, reg.Len())

	// Staging first, facts last.
	order, err := reg.Graph().TopoOrder()
	require.NoError(t, err)
	require.Len(t, order, 5)
	assert.Equal(t, "stg_telegram_messages", order[0])

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["dim_channels"], pos["fct_messages"])
	assert.Less(t, pos["dim_dates"], pos["fct_messages"])

	// The staging model is the only view.
	for _, name := range order {
		m, err := reg.Get(name)
		require.NoError(t, err)
		if name == "stg_telegram_messages" {
			assert.Equal(t, types.MaterializationView, m.Materialization())
		} else {
			assert.Equal(t, types.MaterializationTable, m.Materialization())
		}
	}
}

func TestInit_ScaffoldCompiles(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "mart")
	require.NoError(t, runInit(project))

	reg := model.NewRegistry("telegram_schema")
	require.NoError(t, reg.LoadDir(filepath.Join(project, "models/staging")))
	require.NoError(t, reg.LoadDir(filepath.Join(project, "models/marts")))

	compiled, err := reg.Compile("stg_telegram_messages")
	require.NoError(t, err)
	assert.Contains(t, compiled, "raw.telegram_media")
	assert.NotContains(t, compiled, "{{")

	compiled, err = reg.Compile("fct_messages")
	require.NoError(t, err)
	assert.Contains(t, compiled, "telegram_schema.stg_telegram_messages")
	assert.Contains(t, compiled, "telegram_schema.dim_channels")
	assert.Contains(t, compiled, "telegram_schema.dim_dates")

	compiled, err = reg.Compile("fct_image_detections")
	require.NoError(t, err)
	assert.Contains(t, compiled, "raw.image_detections")
}

func TestInit_ScaffoldDeclaresChecks(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "mart")
	require.NoError(t, runInit(project))

	reg := model.NewRegistry("telegram_schema")
	require.NoError(t, reg.LoadDir(filepath.Join(project, "models/staging")))
	require.NoError(t, reg.LoadDir(filepath.Join(project, "models/marts")))

	fct, err := reg.Get("fct_messages")
	require.NoError(t, err)

	var hasRowCountMatch bool
	for _, c := range fct.Config.Checks {
		if c.Type == types.CheckRowCountMatch {
			hasRowCountMatch = true
			assert.Equal(t, "stg_telegram_messages", c.Config["model"])
		}
	}
	assert.True(t, hasRowCountMatch, "fct_messages should compare row counts against staging")

	dates, err := reg.Get("dim_dates")
	require.NoError(t, err)
	var hasSpine bool
	for _, c := range dates.Config.Checks {
		if c.Type == types.CheckDateSpine {
			hasSpine = true
		}
	}
	assert.True(t, hasSpine, "dim_dates should declare a date_spine check")
}
