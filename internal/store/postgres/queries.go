package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/telemart-systems/telemart/pkg/types"
)

// GetRun returns one run by ID, or an error if it does not exist.
func (s *Store) GetRun(ctx context.Context, runID string) (*types.RunState, error) {
	var (
		run          types.RunState
		status       string
		selectedJSON []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT run_id, status, target, selected, COALESCE(error, ''), started_at, completed_at
		FROM telemart.runs
		WHERE run_id = $1
	`, runID).Scan(&run.RunID, &status, &run.Target, &selectedJSON,
		&run.Error, &run.StartedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	run.Status = types.RunStatus(status)
	if len(selectedJSON) > 0 {
		if err := json.Unmarshal(selectedJSON, &run.Selected); err != nil {
			return nil, fmt.Errorf("unmarshal run selection: %w", err)
		}
	}
	return &run, nil
}

// ListRuns returns recent runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]types.RunState, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, status, target, selected, COALESCE(error, ''), started_at, completed_at
		FROM telemart.runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []types.RunState
	for rows.Next() {
		var (
			run          types.RunState
			status       string
			selectedJSON []byte
		)
		if err := rows.Scan(&run.RunID, &status, &run.Target, &selectedJSON,
			&run.Error, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		run.Status = types.RunStatus(status)
		if len(selectedJSON) > 0 {
			if err := json.Unmarshal(selectedJSON, &run.Selected); err != nil {
				return nil, fmt.Errorf("unmarshal run selection: %w", err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListModelRuns returns per-model outcomes for a run in build order.
func (s *Store) ListModelRuns(ctx context.Context, runID string) ([]types.ModelRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, model, status, materialization, relation, COALESCE(error, ''), started_at, completed_at
		FROM telemart.model_runs
		WHERE run_id = $1
		ORDER BY started_at ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mrs []types.ModelRun
	for rows.Next() {
		var (
			mr     types.ModelRun
			status string
			mat    string
		)
		if err := rows.Scan(&mr.RunID, &mr.Model, &status, &mat, &mr.Relation,
			&mr.Error, &mr.StartedAt, &mr.CompletedAt); err != nil {
			return nil, err
		}
		mr.Status = types.RunStatus(status)
		mr.Materialization = types.Materialization(mat)
		mrs = append(mrs, mr)
	}
	return mrs, rows.Err()
}

// ListCheckResults returns check outcomes for a run.
func (s *Store) ListCheckResults(ctx context.Context, runID string) ([]types.CheckResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, model, check_type, COALESCE("column", ''), status, violations, COALESCE(reason, ''), checked_at
		FROM telemart.check_results
		WHERE run_id = $1
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crs []types.CheckResult
	for rows.Next() {
		var (
			cr        types.CheckResult
			checkType string
			status    string
		)
		if err := rows.Scan(&cr.RunID, &cr.Model, &checkType, &cr.Column,
			&status, &cr.Violations, &cr.Reason, &cr.CheckedAt); err != nil {
			return nil, err
		}
		cr.CheckType = types.CheckType(checkType)
		cr.Status = types.CheckStatus(status)
		crs = append(crs, cr)
	}
	return crs, rows.Err()
}

// ListEvents returns audit events for a run, oldest first.
func (s *Store) ListEvents(ctx context.Context, runID string, limit int) ([]types.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT kind, COALESCE(run_id, ''), COALESCE(model, ''), COALESCE(status, ''),
			COALESCE(message, ''), details, timestamp
		FROM telemart.events
		WHERE run_id = $1
		ORDER BY id ASC
		LIMIT $2
	`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var (
			ev          types.Event
			kind        string
			detailsJSON []byte
		)
		if err := rows.Scan(&kind, &ev.RunID, &ev.Model, &ev.Status,
			&ev.Message, &detailsJSON, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Kind = types.EventKind(kind)
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &ev.Details); err != nil {
				return nil, fmt.Errorf("unmarshal event details: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
