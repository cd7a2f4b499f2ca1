package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/telemart-systems/telemart/pkg/types"
)

// modelSummary is the wire form of one model declaration.
type modelSummary struct {
	Name            string                `json:"name"`
	Description     string                `json:"description,omitempty"`
	Materialization types.Materialization `json:"materialization"`
	Relation        string                `json:"relation"`
	Deps            []string              `json:"deps,omitempty"`
	Sources         []string              `json:"sources,omitempty"`
	Checks          int                   `json:"checks"`
}

// ListModels returns every loaded model declaration.
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	out := []modelSummary{}
	for _, m := range h.registry.List() {
		rel, err := h.registry.RelationFor(m.Name())
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "resolving relation", err)
			return
		}
		s := modelSummary{
			Name:            m.Name(),
			Description:     m.Config.Description,
			Materialization: m.Materialization(),
			Relation:        rel.String(),
			Deps:            m.Deps,
			Checks:          len(m.Config.Checks),
		}
		for _, src := range m.Sources {
			s.Sources = append(s.Sources, src.String())
		}
		out = append(out, s)
	}
	h.writeJSON(w, out)
}

// GetModel returns one model declaration with its compiled SQL and downstream
// impact set.
func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	m, err := h.registry.Get(name)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "model not found", err)
		return
	}
	compiled, err := h.registry.Compile(name)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "compiling model", err)
		return
	}
	rel, _ := h.registry.RelationFor(name)

	var sources []string
	for _, src := range m.Sources {
		sources = append(sources, src.String())
	}

	h.writeJSON(w, map[string]any{
		"name":            m.Name(),
		"description":     m.Config.Description,
		"materialization": m.Materialization(),
		"relation":        rel.String(),
		"deps":            m.Deps,
		"sources":         sources,
		"dependents":      h.registry.Graph().Dependents(name),
		"checks":          m.Config.Checks,
		"compiledSql":     compiled,
	})
}
