// Package handlers implements HTTP request handlers for the telemart API.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/telemart-systems/telemart/internal/adapter"
	"github.com/telemart-systems/telemart/internal/engine"
	"github.com/telemart-systems/telemart/internal/model"
	"github.com/telemart-systems/telemart/internal/store"
)

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	engine   *engine.Engine
	registry *model.Registry
	db       adapter.Adapter
	store    store.Store
	logger   *slog.Logger
}

// New creates a new Handlers instance.
func New(eng *engine.Engine, reg *model.Registry, db adapter.Adapter, st store.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		engine:   eng,
		registry: reg,
		db:       db,
		store:    st,
		logger:   logger,
	}
}

// writeError logs the internal error and returns a sanitized JSON error to the client.
func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		h.logger.Error(msg, "error", err, "status", status)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

// limitParam parses ?limit= with a default and an upper bound.
func limitParam(r *http.Request, def, max int) int {
	q := r.URL.Query().Get("limit")
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// placeholder renders the i-th (1-based) bind parameter for the adapter's
// dialect: $1 for postgres, ? otherwise.
func placeholder(dialect string, i int) string {
	if dialect == "postgres" {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}
