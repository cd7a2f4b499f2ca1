package check

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart-systems/telemart/internal/adapter/adaptertest"
	"github.com/telemart-systems/telemart/internal/model"
	"github.com/telemart-systems/telemart/pkg/types"
)

func loadRegistry(t *testing.T, files map[string]string) *model.Registry {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	r := model.NewRegistry("telegram_schema")
	require.NoError(t, r.LoadDir(dir))
	return r
}

func TestRunModel_NotNullAndUnique(t *testing.T) {
	r := loadRegistry(t, map[string]string{
		"dim_channels.sql": `SELECT 1`,
		"schema.yml": `models:
  - name: dim_channels
    checks:
      - type: not_null
        column: channel_id
      - type: unique
        column: channel_username
`,
	})

	fake := adaptertest.NewFake()
	fake.IntResults["GROUP BY channel_username"] = 3

	results, err := NewRunner(r, fake).RunModel(context.Background(), "dim_channels")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, types.CheckPass, results[0].Status)
	assert.Equal(t, types.CheckNotNull, results[0].CheckType)
	assert.Zero(t, results[0].Violations)

	assert.Equal(t, types.CheckFail, results[1].Status)
	assert.EqualValues(t, 3, results[1].Violations)
	assert.Contains(t, results[1].Reason, "channel_username")

	stmts := fake.ExecutedMatching("telegram_schema.dim_channels")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "channel_id IS NULL")
	assert.Contains(t, stmts[1], "HAVING COUNT(*) > 1")
}

func TestRunModel_Expression(t *testing.T) {
	r := loadRegistry(t, map[string]string{
		"fct_messages.sql": `SELECT 1`,
		"schema.yml": `models:
  - name: fct_messages
    checks:
      - type: expression
        config:
          expression: message_length >= 0
`,
	})

	fake := adaptertest.NewFake()
	results, err := NewRunner(r, fake).RunModel(context.Background(), "fct_messages")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.CheckPass, results[0].Status)

	stmts := fake.ExecutedMatching("IS NOT TRUE")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "(message_length >= 0) IS NOT TRUE")
}

func TestRunModel_RowCountMatch(t *testing.T) {
	r := loadRegistry(t, map[string]string{
		"stg_messages.sql": `SELECT 1`,
		"fct_messages.sql": `SELECT * FROM {{ ref "stg_messages" }}`,
		"schema.yml": `models:
  - name: fct_messages
    checks:
      - type: row_count_match
        config:
          model: stg_messages
`,
	})

	fake := adaptertest.NewFake()
	fake.IntResults["FROM telegram_schema.fct_messages"] = 10
	fake.IntResults["FROM telegram_schema.stg_messages"] = 12

	results, err := NewRunner(r, fake).RunModel(context.Background(), "fct_messages")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.CheckFail, results[0].Status)
	assert.EqualValues(t, 2, results[0].Violations)
	assert.Contains(t, results[0].Reason, "10")
	assert.Contains(t, results[0].Reason, "12")
}

func TestRunModel_RowCountLTE(t *testing.T) {
	r := loadRegistry(t, map[string]string{
		"fct_image_detections.sql": `SELECT 1`,
		"schema.yml": `models:
  - name: fct_image_detections
    checks:
      - type: row_count_lte
        config:
          relation: raw.image_detections
`,
	})

	fake := adaptertest.NewFake()
	fake.IntResults["FROM telegram_schema.fct_image_detections"] = 5
	fake.IntResults["FROM raw.image_detections"] = 8

	results, err := NewRunner(r, fake).RunModel(context.Background(), "fct_image_detections")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.CheckPass, results[0].Status)
	assert.Zero(t, results[0].Violations)
}

func TestRunModel_DateSpine(t *testing.T) {
	r := loadRegistry(t, map[string]string{
		"dim_dates.sql": `SELECT 1`,
		"schema.yml": `models:
  - name: dim_dates
    checks:
      - type: date_spine
        column: date
`,
	})

	fake := adaptertest.NewFake()
	fake.IntResults["COUNT(DISTINCT date)"] = 0

	results, err := NewRunner(r, fake).RunModel(context.Background(), "dim_dates")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.CheckPass, results[0].Status)
}

func TestRunModel_ErrorStatus(t *testing.T) {
	r := loadRegistry(t, map[string]string{
		"dim_channels.sql": `SELECT 1`,
		"schema.yml": `models:
  - name: dim_channels
    checks:
      - type: not_null
        column: channel_id
      - type: expression
`,
	})

	fake := adaptertest.NewFake()
	fake.FailOn = "IS NULL"

	results, err := NewRunner(r, fake).RunModel(context.Background(), "dim_channels")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, types.CheckError, results[0].Status)
	assert.Contains(t, results[0].Reason, "forced failure")
	assert.Equal(t, types.CheckError, results[1].Status)
	assert.Contains(t, results[1].Reason, "config.expression")
}

func TestRunAll_CoversEveryModel(t *testing.T) {
	r := loadRegistry(t, map[string]string{
		"stg_messages.sql": `SELECT 1`,
		"dim_channels.sql": `SELECT * FROM {{ ref "stg_messages" }}`,
		"schema.yml": `models:
  - name: stg_messages
    checks:
      - type: not_null
        column: message_id
  - name: dim_channels
    checks:
      - type: unique
        column: channel_id
`,
	})

	fake := adaptertest.NewFake()
	results, err := NewRunner(r, fake).RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	models := []string{results[0].Model, results[1].Model}
	assert.Contains(t, models, "stg_messages")
	assert.Contains(t, models, "dim_channels")
}
