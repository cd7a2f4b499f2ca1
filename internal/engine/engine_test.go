package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart-systems/telemart/internal/adapter/adaptertest"
	"github.com/telemart-systems/telemart/internal/model"
	"github.com/telemart-systems/telemart/internal/store/storetest"
	"github.com/telemart-systems/telemart/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// martRegistry loads a five-model mart shaped like the shipped project:
// one staging view, two dimensions, two facts.
func martRegistry(t *testing.T) *model.Registry {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"stg_telegram_messages.sql": `SELECT * FROM {{ source "raw" "telegram_media" }}`,
		"dim_channels.sql":          `SELECT DISTINCT channel_username FROM {{ ref "stg_telegram_messages" }}`,
		"dim_dates.sql":             `SELECT DISTINCT media_date::DATE AS date FROM {{ ref "stg_telegram_messages" }}`,
		"fct_messages.sql": `SELECT s.message_id FROM {{ ref "stg_telegram_messages" }} s
JOIN {{ ref "dim_channels" }} c ON s.channel_username = c.channel_username
JOIN {{ ref "dim_dates" }} d ON s.media_date::DATE = d.date`,
		"fct_image_detections.sql": `SELECT c.channel_username FROM {{ source "raw" "image_detections" }} det
JOIN {{ ref "dim_channels" }} c ON det.channel = c.channel_username`,
		"schema.yml": `models:
  - name: dim_channels
    materialization: table
  - name: dim_dates
    materialization: table
  - name: fct_messages
    materialization: table
    checks:
      - type: not_null
        column: message_id
  - name: fct_image_detections
    materialization: table
`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	r := model.NewRegistry("telegram_schema")
	require.NoError(t, r.LoadDir(dir))
	return r
}

func statusByModel(models []types.ModelRun) map[string]types.RunStatus {
	out := make(map[string]types.RunStatus, len(models))
	for _, mr := range models {
		out[mr.Model] = mr.Status
	}
	return out
}

func TestRun_BuildsAllModelsInOrder(t *testing.T) {
	fake := adaptertest.NewFake()
	mem := storetest.NewMemory()
	e := New(martRegistry(t), fake, testLogger(), WithStore(mem))

	result, err := e.Run(context.Background(), RunOptions{Target: "postgres"})
	require.NoError(t, err)
	assert.Equal(t, types.RunSuccess, result.Run.Status)
	assert.NotEmpty(t, result.Run.RunID)
	require.NotNil(t, result.Run.CompletedAt)
	assert.False(t, result.Failed())

	statuses := statusByModel(result.Models)
	require.Len(t, statuses, 5)
	for name, status := range statuses {
		assert.Equal(t, types.RunSuccess, status, "model %s", name)
	}

	// Staging is a view, everything else rebuilds as a table.
	views := fake.ExecutedMatching("CREATE OR REPLACE VIEW")
	require.Len(t, views, 1)
	assert.Contains(t, views[0], "telegram_schema.stg_telegram_messages")
	assert.Contains(t, views[0], "raw.telegram_media")
	assert.Len(t, fake.ExecutedMatching("DROP TABLE IF EXISTS"), 4)
	assert.Len(t, fake.ExecutedMatching("CREATE TABLE"), 4)

	// The staging view exists before any table is created from it.
	all := fake.Executed()
	for i, stmt := range all {
		if stmt == views[0] {
			for _, earlier := range all[:i] {
				assert.NotContains(t, earlier, "CREATE TABLE")
			}
			break
		}
	}

	assert.Contains(t, fake.Schemas(), "telegram_schema")

	// Store captured the full history.
	runs, err := mem.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	mrs, err := mem.ListModelRuns(context.Background(), result.Run.RunID)
	require.NoError(t, err)
	assert.Len(t, mrs, 5)
	assert.Len(t, mem.EventsOfKind(types.EventModelBuilt), 5)
	assert.Len(t, mem.EventsOfKind(types.EventRunStarted), 1)
	assert.Len(t, mem.EventsOfKind(types.EventRunCompleted), 1)
}

func TestRun_FailureSkipsDownstream(t *testing.T) {
	fake := adaptertest.NewFake()
	fake.FailOn = "stg_telegram_messages"

	var mu sync.Mutex
	var alerts []types.Alert
	alertFn := func(_ context.Context, a types.Alert) {
		mu.Lock()
		defer mu.Unlock()
		alerts = append(alerts, a)
	}

	mem := storetest.NewMemory()
	e := New(martRegistry(t), fake, testLogger(), WithStore(mem), WithAlertFunc(alertFn))

	result, err := e.Run(context.Background(), RunOptions{Target: "postgres"})
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, result.Run.Status)
	assert.Contains(t, result.Run.Error, "1 of 5 models failed")

	statuses := statusByModel(result.Models)
	assert.Equal(t, types.RunFailed, statuses["stg_telegram_messages"])
	assert.Equal(t, types.RunSkipped, statuses["dim_channels"])
	assert.Equal(t, types.RunSkipped, statuses["dim_dates"])
	assert.Equal(t, types.RunSkipped, statuses["fct_messages"])
	assert.Equal(t, types.RunSkipped, statuses["fct_image_detections"])

	// No table was ever created on top of the failed staging model.
	assert.Empty(t, fake.ExecutedMatching("CREATE TABLE"))

	assert.Len(t, mem.EventsOfKind(types.EventModelSkipped), 4)
	assert.Len(t, mem.EventsOfKind(types.EventRunFailed), 1)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, alerts)
	assert.Equal(t, types.AlertLevelError, alerts[0].Level)
	assert.Equal(t, "stg_telegram_messages", alerts[0].Model)
}

func TestRun_MidGraphFailureBuildsSiblings(t *testing.T) {
	fake := adaptertest.NewFake()
	fake.FailOn = "DISTINCT channel_username"

	e := New(martRegistry(t), fake, testLogger())
	result, err := e.Run(context.Background(), RunOptions{Target: "postgres", SkipChecks: true})
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, result.Run.Status)

	statuses := statusByModel(result.Models)
	assert.Equal(t, types.RunSuccess, statuses["stg_telegram_messages"])
	assert.Equal(t, types.RunFailed, statuses["dim_channels"])
	assert.Equal(t, types.RunSuccess, statuses["dim_dates"], "siblings of a failed model still build")
	assert.Equal(t, types.RunSkipped, statuses["fct_messages"])
	assert.Equal(t, types.RunSkipped, statuses["fct_image_detections"])
}

func TestRun_SelectBuildsUpstreamClosure(t *testing.T) {
	fake := adaptertest.NewFake()
	e := New(martRegistry(t), fake, testLogger())

	result, err := e.Run(context.Background(), RunOptions{
		Target:     "duckdb",
		Select:     []string{"fct_messages"},
		SkipChecks: true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.RunSuccess, result.Run.Status)

	statuses := statusByModel(result.Models)
	assert.Len(t, statuses, 4)
	assert.Contains(t, statuses, "stg_telegram_messages")
	assert.Contains(t, statuses, "dim_channels")
	assert.Contains(t, statuses, "dim_dates")
	assert.Contains(t, statuses, "fct_messages")
	assert.NotContains(t, statuses, "fct_image_detections")
}

func TestRun_SelectUnknownModel(t *testing.T) {
	e := New(martRegistry(t), adaptertest.NewFake(), testLogger())
	_, err := e.Run(context.Background(), RunOptions{Select: []string{"fct_nonsense"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fct_nonsense")
}

func TestRun_CheckFailureDoesNotFailRun(t *testing.T) {
	fake := adaptertest.NewFake()
	fake.IntResults["message_id IS NULL"] = 7

	mem := storetest.NewMemory()
	e := New(martRegistry(t), fake, testLogger(), WithStore(mem))

	result, err := e.Run(context.Background(), RunOptions{Target: "postgres"})
	require.NoError(t, err)
	assert.Equal(t, types.RunSuccess, result.Run.Status, "data check failures do not fail the build")
	assert.True(t, result.Failed(), "but the result reports the check failure")

	require.Len(t, result.Checks, 1)
	assert.Equal(t, types.CheckFail, result.Checks[0].Status)
	assert.EqualValues(t, 7, result.Checks[0].Violations)
	assert.Equal(t, result.Run.RunID, result.Checks[0].RunID)

	stored, err := mem.ListCheckResults(context.Background(), result.Run.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Len(t, mem.EventsOfKind(types.EventCheckFailed), 1)
}

func TestRun_SkipChecks(t *testing.T) {
	fake := adaptertest.NewFake()
	fake.IntResults["message_id IS NULL"] = 7

	e := New(martRegistry(t), fake, testLogger())
	result, err := e.Run(context.Background(), RunOptions{SkipChecks: true})
	require.NoError(t, err)
	assert.Empty(t, result.Checks)
	assert.False(t, result.Failed())
}

func TestRun_StoreFailureDoesNotFailBuild(t *testing.T) {
	mem := storetest.NewMemory()
	mem.FailPuts = true

	e := New(martRegistry(t), adaptertest.NewFake(), testLogger(), WithStore(mem))
	result, err := e.Run(context.Background(), RunOptions{SkipChecks: true})
	require.NoError(t, err)
	assert.Equal(t, types.RunSuccess, result.Run.Status)
}

func TestRun_ConcurrencyOne(t *testing.T) {
	fake := adaptertest.NewFake()
	e := New(martRegistry(t), fake, testLogger(), WithConcurrency(1))

	result, err := e.Run(context.Background(), RunOptions{SkipChecks: true})
	require.NoError(t, err)
	assert.Equal(t, types.RunSuccess, result.Run.Status)
	assert.Len(t, result.Models, 5)
}
