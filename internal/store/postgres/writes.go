package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/telemart-systems/telemart/pkg/types"
)

// PutRun upserts a run into the runs table.
func (s *Store) PutRun(ctx context.Context, run types.RunState) error {
	selectedJSON, err := json.Marshal(run.Selected)
	if err != nil {
		return fmt.Errorf("marshal run selection: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO telemart.runs (run_id, status, target, selected, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			status       = EXCLUDED.status,
			error        = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at,
			recorded_at  = NOW()
	`, run.RunID, string(run.Status), run.Target, selectedJSON, run.Error,
		run.StartedAt, run.CompletedAt)
	return err
}

// PutModelRun upserts a per-model outcome.
func (s *Store) PutModelRun(ctx context.Context, mr types.ModelRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO telemart.model_runs (run_id, model, status, materialization, relation, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, model) DO UPDATE SET
			status       = EXCLUDED.status,
			error        = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at,
			recorded_at  = NOW()
	`, mr.RunID, mr.Model, string(mr.Status), string(mr.Materialization),
		mr.Relation, mr.Error, mr.StartedAt, mr.CompletedAt)
	return err
}

// PutCheckResult appends a check outcome.
func (s *Store) PutCheckResult(ctx context.Context, cr types.CheckResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO telemart.check_results (run_id, model, check_type, "column", status, violations, reason, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, cr.RunID, cr.Model, string(cr.CheckType), cr.Column, string(cr.Status),
		cr.Violations, cr.Reason, cr.CheckedAt)
	return err
}

// AppendEvent appends an audit event.
func (s *Store) AppendEvent(ctx context.Context, event types.Event) error {
	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal event details: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO telemart.events (kind, run_id, model, status, message, details, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, string(event.Kind), event.RunID, event.Model, event.Status,
		event.Message, detailsJSON, event.Timestamp)
	return err
}
