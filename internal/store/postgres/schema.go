// Package postgres implements a durable Postgres store for run history.
package postgres

const schemaDDL = `
CREATE SCHEMA IF NOT EXISTS telemart;

CREATE TABLE IF NOT EXISTS telemart.runs (
    run_id       TEXT PRIMARY KEY,
    status       TEXT NOT NULL,
    target       TEXT NOT NULL,
    selected     JSONB,
    error        TEXT,
    started_at   TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ,
    recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON telemart.runs (status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON telemart.runs (started_at);

CREATE TABLE IF NOT EXISTS telemart.model_runs (
    run_id          TEXT NOT NULL,
    model           TEXT NOT NULL,
    status          TEXT NOT NULL,
    materialization TEXT NOT NULL,
    relation        TEXT NOT NULL,
    error           TEXT,
    started_at      TIMESTAMPTZ NOT NULL,
    completed_at    TIMESTAMPTZ,
    recorded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (run_id, model)
);
CREATE INDEX IF NOT EXISTS idx_model_runs_model ON telemart.model_runs (model);

CREATE TABLE IF NOT EXISTS telemart.check_results (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL,
    model       TEXT NOT NULL,
    check_type  TEXT NOT NULL,
    "column"    TEXT,
    status      TEXT NOT NULL,
    violations  BIGINT NOT NULL DEFAULT 0,
    reason      TEXT,
    checked_at  TIMESTAMPTZ NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_check_results_run ON telemart.check_results (run_id);
CREATE INDEX IF NOT EXISTS idx_check_results_model_status ON telemart.check_results (model, status);

CREATE TABLE IF NOT EXISTS telemart.events (
    id          BIGSERIAL PRIMARY KEY,
    kind        TEXT NOT NULL,
    run_id      TEXT,
    model       TEXT,
    status      TEXT,
    message     TEXT,
    details     JSONB,
    timestamp   TIMESTAMPTZ NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_events_run_kind ON telemart.events (run_id, kind);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON telemart.events (timestamp);
`
