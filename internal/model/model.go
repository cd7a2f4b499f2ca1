// Package model handles loading, validating, and rendering SQL model
// declarations. A model is a .sql file whose body may reference other models
// with {{ ref "name" }} and upstream tables with {{ source "schema" "table" }};
// the references both declare the dependency graph and render to qualified
// relation names at build time.
package model

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/telemart-systems/telemart/pkg/types"
)

// Model is a fully loaded model declaration: config from schema.yml plus the
// raw SQL body and the dependencies extracted from it.
type Model struct {
	Config  types.ModelConfig
	RawSQL  string
	Path    string
	Deps    []string         // upstream models referenced via ref
	Sources []types.Relation // external tables referenced via source
}

// Name returns the model's name (the .sql file base name).
func (m *Model) Name() string { return m.Config.Name }

// Materialization returns the model's materialization, defaulting to view.
func (m *Model) Materialization() types.Materialization {
	if m.Config.Materialization == "" {
		return types.MaterializationView
	}
	return m.Config.Materialization
}

// Resolver maps a model name to the relation it materializes into.
type Resolver func(name string) (types.Relation, error)

// Render substitutes every ref and source in the model body with its qualified
// relation name and returns the executable SELECT statement.
func (m *Model) Render(resolve Resolver) (string, error) {
	var renderErr error
	funcs := template.FuncMap{
		"ref": func(name string) string {
			rel, err := resolve(name)
			if err != nil && renderErr == nil {
				renderErr = err
			}
			return rel.String()
		},
		"source": func(schema, table string) string {
			return types.Relation{Schema: schema, Name: table}.String()
		},
	}

	tmpl, err := template.New(m.Name()).Funcs(funcs).Parse(m.RawSQL)
	if err != nil {
		return "", fmt.Errorf("parsing model %q: %w", m.Name(), err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, nil); err != nil {
		return "", fmt.Errorf("rendering model %q: %w", m.Name(), err)
	}
	if renderErr != nil {
		return "", fmt.Errorf("rendering model %q: %w", m.Name(), renderErr)
	}
	return strings.TrimSpace(out.String()), nil
}

// extractRefs runs the template once with collecting funcs to discover the
// model's ref and source dependencies without rendering real relation names.
func (m *Model) extractRefs() error {
	refs := make(map[string]bool)
	sources := make(map[types.Relation]bool)

	funcs := template.FuncMap{
		"ref": func(name string) string {
			refs[name] = true
			return name
		},
		"source": func(schema, table string) string {
			sources[types.Relation{Schema: schema, Name: table}] = true
			return schema + "." + table
		},
	}

	tmpl, err := template.New(m.Name()).Funcs(funcs).Parse(m.RawSQL)
	if err != nil {
		return fmt.Errorf("parsing model %q: %w", m.Name(), err)
	}
	if err := tmpl.Execute(&strings.Builder{}, nil); err != nil {
		return fmt.Errorf("resolving references in model %q: %w", m.Name(), err)
	}

	m.Deps = m.Deps[:0]
	for r := range refs {
		m.Deps = append(m.Deps, r)
	}
	sort.Strings(m.Deps)

	m.Sources = m.Sources[:0]
	for s := range sources {
		m.Sources = append(m.Sources, s)
	}
	sort.Slice(m.Sources, func(i, j int) bool {
		return m.Sources[i].String() < m.Sources[j].String()
	})
	return nil
}

// ValidateConfig checks that a model config from schema.yml is well-formed.
func ValidateConfig(cfg *types.ModelConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("model name is required")
	}
	switch cfg.Materialization {
	case "", types.MaterializationView, types.MaterializationTable:
	default:
		return fmt.Errorf("unsupported materialization %q", cfg.Materialization)
	}
	for _, c := range cfg.Checks {
		if c.Type == "" {
			return fmt.Errorf("check type is required")
		}
	}
	return nil
}
