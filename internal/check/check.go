// Package check implements the builtin data checks declared in schema.yml.
// Each check compiles to a SQL query whose result decides pass or fail; the
// warehouse does the work, telemart only interprets the counts.
package check

import (
	"context"
	"fmt"
	"time"

	"github.com/telemart-systems/telemart/internal/model"
	"github.com/telemart-systems/telemart/pkg/types"
)

// Adapter is the minimal warehouse surface checks need.
type Adapter interface {
	QueryInt(ctx context.Context, sql string, args ...any) (int64, error)
}

// Runner executes the checks declared on models.
type Runner struct {
	registry *model.Registry
	db       Adapter
}

// NewRunner creates a check runner against the given registry and warehouse.
func NewRunner(registry *model.Registry, db Adapter) *Runner {
	return &Runner{registry: registry, db: db}
}

// RunModel executes all checks declared on one model.
func (r *Runner) RunModel(ctx context.Context, name string) ([]types.CheckResult, error) {
	m, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}

	var results []types.CheckResult
	for _, cfg := range m.Config.Checks {
		results = append(results, r.runOne(ctx, m, cfg))
	}
	return results, nil
}

// RunAll executes every declared check across all models, in model order.
func (r *Runner) RunAll(ctx context.Context) ([]types.CheckResult, error) {
	var results []types.CheckResult
	for _, m := range r.registry.List() {
		rs, err := r.RunModel(ctx, m.Name())
		if err != nil {
			return results, err
		}
		results = append(results, rs...)
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, m *model.Model, cfg types.CheckConfig) types.CheckResult {
	result := types.CheckResult{
		Model:     m.Name(),
		CheckType: cfg.Type,
		Column:    cfg.Column,
		CheckedAt: time.Now(),
	}

	rel, err := r.registry.RelationFor(m.Name())
	if err != nil {
		result.Status = types.CheckError
		result.Reason = err.Error()
		return result
	}

	violations, reason, err := r.evaluate(ctx, rel, cfg)
	if err != nil {
		result.Status = types.CheckError
		result.Reason = err.Error()
		return result
	}

	result.Violations = violations
	result.Reason = reason
	if violations > 0 {
		result.Status = types.CheckFail
	} else {
		result.Status = types.CheckPass
	}
	return result
}

// evaluate compiles and runs one check, returning the violation count.
func (r *Runner) evaluate(ctx context.Context, rel types.Relation, cfg types.CheckConfig) (int64, string, error) {
	switch cfg.Type {
	case types.CheckNotNull:
		if cfg.Column == "" {
			return 0, "", fmt.Errorf("not_null requires a column")
		}
		n, err := r.db.QueryInt(ctx, fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE %s IS NULL", rel, cfg.Column))
		return n, fmt.Sprintf("%d null values in %s", n, cfg.Column), err

	case types.CheckUnique:
		if cfg.Column == "" {
			return 0, "", fmt.Errorf("unique requires a column")
		}
		n, err := r.db.QueryInt(ctx, fmt.Sprintf(
			"SELECT COUNT(*) FROM (SELECT %s FROM %s GROUP BY %s HAVING COUNT(*) > 1) d",
			cfg.Column, rel, cfg.Column))
		return n, fmt.Sprintf("%d duplicated values of %s", n, cfg.Column), err

	case types.CheckExpression:
		expr, ok := cfg.Config["expression"].(string)
		if !ok || expr == "" {
			return 0, "", fmt.Errorf("expression requires config.expression")
		}
		// IS NOT TRUE counts NULL results as violations too.
		n, err := r.db.QueryInt(ctx, fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE (%s) IS NOT TRUE", rel, expr))
		return n, fmt.Sprintf("%d rows violate %q", n, expr), err

	case types.CheckRowCountMatch, types.CheckRowCountLTE:
		other, err := r.compareRelation(cfg)
		if err != nil {
			return 0, "", err
		}
		ours, err := r.db.QueryInt(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", rel))
		if err != nil {
			return 0, "", err
		}
		theirs, err := r.db.QueryInt(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", other))
		if err != nil {
			return 0, "", err
		}
		reason := fmt.Sprintf("%s has %d rows, %s has %d", rel, ours, other, theirs)
		if cfg.Type == types.CheckRowCountMatch {
			return abs(ours - theirs), reason, nil
		}
		if ours > theirs {
			return ours - theirs, reason, nil
		}
		return 0, reason, nil

	case types.CheckDateSpine:
		if cfg.Column == "" {
			return 0, "", fmt.Errorf("date_spine requires a column")
		}
		// Expected span minus distinct days: positive means gaps or an
		// over-wide range, negative means duplicates. Empty relations
		// yield NULL which scans as 0 (an empty spine is valid).
		n, err := r.db.QueryInt(ctx, fmt.Sprintf(
			"SELECT (MAX(%s) - MIN(%s) + 1) - COUNT(DISTINCT %s) FROM %s",
			cfg.Column, cfg.Column, cfg.Column, rel))
		return abs(n), fmt.Sprintf("spine deviation %d over %s", n, cfg.Column), err

	default:
		return 0, "", fmt.Errorf("unknown check type %q", cfg.Type)
	}
}

// compareRelation resolves the relation a row-count check compares against:
// either another model (config.model) or an external table (config.relation).
func (r *Runner) compareRelation(cfg types.CheckConfig) (types.Relation, error) {
	if name, ok := cfg.Config["model"].(string); ok && name != "" {
		return r.registry.RelationFor(name)
	}
	if raw, ok := cfg.Config["relation"].(string); ok && raw != "" {
		return parseRelation(raw), nil
	}
	return types.Relation{}, fmt.Errorf("%s requires config.model or config.relation", cfg.Type)
}

func parseRelation(raw string) types.Relation {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' {
			return types.Relation{Schema: raw[:i], Name: raw[i+1:]}
		}
	}
	return types.Relation{Name: raw}
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
