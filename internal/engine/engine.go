// Package engine executes mart builds: it orders models by dependency,
// materializes them level by level, runs declared data checks, and records
// outcomes in the run store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/telemart-systems/telemart/internal/adapter"
	"github.com/telemart-systems/telemart/internal/cascade"
	"github.com/telemart-systems/telemart/internal/check"
	"github.com/telemart-systems/telemart/internal/lifecycle"
	"github.com/telemart-systems/telemart/internal/metrics"
	"github.com/telemart-systems/telemart/internal/model"
	"github.com/telemart-systems/telemart/internal/store"
	"github.com/telemart-systems/telemart/pkg/types"
)

const defaultConcurrency = 4

// Engine builds the mart against a warehouse adapter.
type Engine struct {
	registry    *model.Registry
	db          adapter.Adapter
	store       store.Store // optional
	alertFn     func(context.Context, types.Alert)
	logger      *slog.Logger
	concurrency int
	timeout     time.Duration
	entropy     *ulid.MonotonicEntropy
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore records run history in the given store.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithAlertFunc sets the callback invoked for build failures and check
// failures.
func WithAlertFunc(fn func(context.Context, types.Alert)) Option {
	return func(e *Engine) { e.alertFn = fn }
}

// WithConcurrency caps how many models build in parallel within a level.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithTimeout bounds the whole run.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates an Engine over a loaded registry and warehouse adapter.
func New(registry *model.Registry, db adapter.Adapter, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry:    registry,
		db:          db,
		logger:      logger,
		concurrency: defaultConcurrency,
		entropy:     ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// RunOptions selects what a run builds.
type RunOptions struct {
	// Select names the models to build. Empty means all. Selected models
	// are built together with their transitive upstream dependencies.
	Select []string
	// Target names the warehouse target, recorded in run state.
	Target string
	// SkipChecks materializes models without running declared data checks.
	SkipChecks bool
}

// Result is the full outcome of one run.
type Result struct {
	Run    types.RunState      `json:"run"`
	Models []types.ModelRun    `json:"models"`
	Checks []types.CheckResult `json:"checks,omitempty"`
}

// Failed reports whether any model failed or was skipped, or any check failed.
func (r *Result) Failed() bool {
	if r.Run.Status == types.RunFailed {
		return true
	}
	for _, c := range r.Checks {
		if c.Status != types.CheckPass {
			return true
		}
	}
	return false
}

// Run executes a build. Models are materialized in dependency order; models
// within a level run concurrently. When a model fails, its transitive
// dependents are skipped and the run finishes FAILED after the remaining
// independent models complete.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	tracer := otel.Tracer("telemart/engine")
	ctx, span := tracer.Start(ctx, "engine.run")
	defer span.End()

	if err := e.registry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model graph: %w", err)
	}

	graph := e.registry.Graph()
	selected, err := e.selection(opts.Select)
	if err != nil {
		return nil, err
	}

	levels, err := graph.Levels()
	if err != nil {
		return nil, err
	}

	runID := ulid.MustNew(ulid.Timestamp(time.Now()), e.entropy).String()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("run.models", len(selected)),
	)

	run := types.RunState{
		RunID:     runID,
		Status:    types.RunRunning,
		Target:    opts.Target,
		Selected:  opts.Select,
		StartedAt: time.Now(),
	}
	e.putRun(ctx, run)
	e.appendEvent(ctx, types.Event{
		Kind:      types.EventRunStarted,
		RunID:     runID,
		Message:   fmt.Sprintf("building %d models", len(selected)),
		Timestamp: time.Now(),
	})
	metrics.RunsTotal.Add(1)

	if err := e.ensureSchemas(ctx, selected); err != nil {
		e.finishRun(ctx, &run, types.RunFailed, err.Error())
		return &Result{Run: run}, err
	}

	tracker := cascade.NewTracker(graph, e.logger)
	collect := newCollector(runID)

	for _, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.concurrency)
		for _, name := range level {
			if !selected[name] {
				continue
			}
			name := name
			g.Go(func() error {
				e.buildModel(gctx, tracer, runID, name, tracker, collect)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			// Context cancelled or deadline hit; stop scheduling levels.
			e.finishRun(ctx, &run, types.RunCancelled, err.Error())
			result := &Result{Run: run, Models: collect.models()}
			return result, err
		}
	}

	var checks []types.CheckResult
	if !opts.SkipChecks {
		checks = e.runChecks(ctx, runID, selected, collect)
	}

	status := types.RunSuccess
	errMsg := ""
	if failed := collect.failures(); len(failed) > 0 {
		status = types.RunFailed
		errMsg = fmt.Sprintf("%d of %d models failed", len(failed), len(selected))
	}
	e.finishRun(ctx, &run, status, errMsg)

	return &Result{Run: run, Models: collect.models(), Checks: checks}, nil
}

// selection resolves the --select list into the set of models to build.
func (e *Engine) selection(names []string) (map[string]bool, error) {
	selected := make(map[string]bool)
	if len(names) == 0 {
		for _, m := range e.registry.List() {
			selected[m.Name()] = true
		}
		return selected, nil
	}
	for _, n := range names {
		if _, err := e.registry.Get(n); err != nil {
			return nil, err
		}
	}
	for _, n := range e.registry.Graph().UpstreamClosure(names) {
		selected[n] = true
	}
	return selected, nil
}

// ensureSchemas creates the target schema for every selected model.
func (e *Engine) ensureSchemas(ctx context.Context, selected map[string]bool) error {
	seen := make(map[string]bool)
	for name := range selected {
		rel, err := e.registry.RelationFor(name)
		if err != nil {
			return err
		}
		if rel.Schema == "" || seen[rel.Schema] {
			continue
		}
		seen[rel.Schema] = true
		if err := e.db.EnsureSchema(ctx, rel.Schema); err != nil {
			return fmt.Errorf("ensuring schema %s: %w", rel.Schema, err)
		}
	}
	return nil
}

func (e *Engine) buildModel(ctx context.Context, tracer trace.Tracer, runID, name string, tracker *cascade.Tracker, collect *collector) {
	m, err := e.registry.Get(name)
	if err != nil {
		// Selection is validated before levels run.
		e.logger.Error("model vanished mid-run", "model", name, "error", err)
		return
	}
	rel, _ := e.registry.RelationFor(name)

	mr := types.ModelRun{
		RunID:           runID,
		Model:           name,
		Status:          types.RunPending,
		Materialization: m.Materialization(),
		Relation:        rel.String(),
		StartedAt:       time.Now(),
	}

	if cause, skip := tracker.ShouldSkip(name); skip {
		e.transition(&mr, types.RunSkipped)
		mr.Error = fmt.Sprintf("upstream model %s failed", cause)
		now := time.Now()
		mr.CompletedAt = &now
		collect.add(mr)
		e.putModelRun(ctx, mr)
		e.appendEvent(ctx, types.Event{
			Kind:      types.EventModelSkipped,
			RunID:     runID,
			Model:     name,
			Message:   mr.Error,
			Timestamp: now,
		})
		metrics.ModelsSkipped.Add(1)
		e.logger.Info("model skipped", "model", name, "cause", cause)
		return
	}

	ctx, span := tracer.Start(ctx, "engine.build."+name)
	defer span.End()

	e.transition(&mr, types.RunRunning)
	e.putModelRun(ctx, mr)

	err = e.materialize(ctx, m, rel)
	now := time.Now()
	mr.CompletedAt = &now

	if err != nil {
		e.transition(&mr, types.RunFailed)
		mr.Error = err.Error()
		collect.add(mr)
		e.putModelRun(ctx, mr)
		e.appendEvent(ctx, types.Event{
			Kind:      types.EventModelFailed,
			RunID:     runID,
			Model:     name,
			Message:   err.Error(),
			Timestamp: now,
		})
		metrics.ModelsFailed.Add(1)
		tracker.MarkFailed(name)
		e.fireAlert(ctx, types.Alert{
			Level:     types.AlertLevelError,
			RunID:     runID,
			Model:     name,
			Message:   fmt.Sprintf("model %s failed: %v", name, err),
			Timestamp: now,
		})
		e.logger.Error("model build failed", "model", name, "error", err)
		return
	}

	e.transition(&mr, types.RunSuccess)
	collect.add(mr)
	e.putModelRun(ctx, mr)
	e.appendEvent(ctx, types.Event{
		Kind:      types.EventModelBuilt,
		RunID:     runID,
		Model:     name,
		Details:   map[string]interface{}{"materialization": string(m.Materialization()), "relation": rel.String()},
		Timestamp: now,
	})
	metrics.ModelsBuilt.Add(1)
	e.logger.Info("model built",
		"model", name,
		"materialization", m.Materialization(),
		"relation", rel.String(),
		"duration", now.Sub(mr.StartedAt).Round(time.Millisecond))
}

// transition moves a model run to a new status, logging any violation of the
// run state machine.
func (e *Engine) transition(mr *types.ModelRun, to types.RunStatus) {
	if err := lifecycle.Transition(mr.Status, to); err != nil {
		e.logger.Error("lifecycle violation", "model", mr.Model, "error", err)
	}
	mr.Status = to
}

// materialize compiles a model and creates its relation.
func (e *Engine) materialize(ctx context.Context, m *model.Model, rel types.Relation) error {
	body, err := e.registry.Compile(m.Name())
	if err != nil {
		return err
	}
	switch m.Materialization() {
	case types.MaterializationTable:
		return e.db.RebuildTable(ctx, rel, body)
	default:
		return e.db.CreateView(ctx, rel, body)
	}
}

// runChecks executes declared checks for every successfully built model.
func (e *Engine) runChecks(ctx context.Context, runID string, selected map[string]bool, collect *collector) []types.CheckResult {
	runner := check.NewRunner(e.registry, e.db)

	var all []types.CheckResult
	for _, m := range e.registry.List() {
		name := m.Name()
		if !selected[name] || !collect.succeeded(name) {
			continue
		}
		results, err := runner.RunModel(ctx, name)
		if err != nil {
			e.logger.Error("check execution failed", "model", name, "error", err)
			continue
		}
		for i := range results {
			results[i].RunID = runID
			metrics.ChecksRun.Add(1)
			e.putCheckResult(ctx, results[i])
			if results[i].Status == types.CheckPass {
				continue
			}
			metrics.ChecksFailed.Add(1)
			e.appendEvent(ctx, types.Event{
				Kind:      types.EventCheckFailed,
				RunID:     runID,
				Model:     name,
				Status:    string(results[i].Status),
				Message:   results[i].Reason,
				Timestamp: results[i].CheckedAt,
			})
			e.fireAlert(ctx, types.Alert{
				Level:     types.AlertLevelWarning,
				RunID:     runID,
				Model:     name,
				Message:   fmt.Sprintf("check %s failed on %s: %s", results[i].CheckType, name, results[i].Reason),
				Timestamp: results[i].CheckedAt,
			})
		}
		all = append(all, results...)
	}
	return all
}

func (e *Engine) finishRun(ctx context.Context, run *types.RunState, status types.RunStatus, errMsg string) {
	now := time.Now()
	run.Status = status
	run.Error = errMsg
	run.CompletedAt = &now
	e.putRun(ctx, *run)

	kind := types.EventRunCompleted
	if status != types.RunSuccess {
		kind = types.EventRunFailed
		metrics.RunsFailed.Add(1)
	}
	e.appendEvent(ctx, types.Event{
		Kind:      kind,
		RunID:     run.RunID,
		Status:    string(status),
		Message:   errMsg,
		Timestamp: now,
	})

	if status == types.RunFailed {
		e.fireAlert(ctx, types.Alert{
			Level:     types.AlertLevelError,
			RunID:     run.RunID,
			Message:   fmt.Sprintf("run %s failed: %s", run.RunID, errMsg),
			Timestamp: now,
		})
	}
}

func (e *Engine) fireAlert(ctx context.Context, a types.Alert) {
	if e.alertFn == nil {
		return
	}
	e.alertFn(ctx, a)
	metrics.AlertsDispatched.Add(1)
	e.appendEvent(ctx, types.Event{
		Kind:      types.EventAlertDispatched,
		RunID:     a.RunID,
		Model:     a.Model,
		Status:    string(a.Level),
		Message:   a.Message,
		Timestamp: time.Now(),
	})
}

// Store writes are best-effort: a flaky metadata store must not fail a build.

func (e *Engine) putRun(ctx context.Context, run types.RunState) {
	if e.store == nil {
		return
	}
	if err := e.store.PutRun(ctx, run); err != nil {
		e.logger.Warn("store write failed", "kind", "run", "error", err)
	}
}

func (e *Engine) putModelRun(ctx context.Context, mr types.ModelRun) {
	if e.store == nil {
		return
	}
	if err := e.store.PutModelRun(ctx, mr); err != nil {
		e.logger.Warn("store write failed", "kind", "model_run", "error", err)
	}
}

func (e *Engine) putCheckResult(ctx context.Context, cr types.CheckResult) {
	if e.store == nil {
		return
	}
	if err := e.store.PutCheckResult(ctx, cr); err != nil {
		e.logger.Warn("store write failed", "kind", "check_result", "error", err)
	}
}

func (e *Engine) appendEvent(ctx context.Context, ev types.Event) {
	if e.store == nil {
		return
	}
	if err := e.store.AppendEvent(ctx, ev); err != nil {
		e.logger.Warn("store write failed", "kind", "event", "error", err)
	}
}
