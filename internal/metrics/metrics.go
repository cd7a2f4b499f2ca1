// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	RunsTotal        = expvar.NewInt("runs_total")
	RunsFailed       = expvar.NewInt("runs_failed")
	ModelsBuilt      = expvar.NewInt("models_built_total")
	ModelsFailed     = expvar.NewInt("models_failed_total")
	ModelsSkipped    = expvar.NewInt("models_skipped_total")
	ChecksRun        = expvar.NewInt("checks_run_total")
	ChecksFailed     = expvar.NewInt("checks_failed_total")
	AlertsDispatched = expvar.NewInt("alerts_dispatched")
	AlertsFailed     = expvar.NewInt("alerts_failed")
)
