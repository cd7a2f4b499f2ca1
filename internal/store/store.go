// Package store defines the run-state storage interface.
package store

import (
	"context"

	"github.com/telemart-systems/telemart/pkg/types"
)

// Store persists run history, per-model outcomes, check results, and the
// audit event log. The build works without one (results go to stdout only),
// but the status command and the HTTP API need a configured store.
type Store interface {
	// Run state
	PutRun(ctx context.Context, run types.RunState) error
	GetRun(ctx context.Context, runID string) (*types.RunState, error)
	ListRuns(ctx context.Context, limit int) ([]types.RunState, error)

	// Per-model outcomes within a run
	PutModelRun(ctx context.Context, mr types.ModelRun) error
	ListModelRuns(ctx context.Context, runID string) ([]types.ModelRun, error)

	// Data check outcomes
	PutCheckResult(ctx context.Context, cr types.CheckResult) error
	ListCheckResults(ctx context.Context, runID string) ([]types.CheckResult, error)

	// Event log, append-only audit trail
	AppendEvent(ctx context.Context, event types.Event) error
	ListEvents(ctx context.Context, runID string, limit int) ([]types.Event, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}
