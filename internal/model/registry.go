package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/telemart-systems/telemart/internal/dag"
	"github.com/telemart-systems/telemart/pkg/types"
)

// Registry holds all loaded models and the dependency graph derived from
// their references.
type Registry struct {
	models       map[string]*Model
	targetSchema string
}

// NewRegistry creates an empty registry. Models materialize into targetSchema.
func NewRegistry(targetSchema string) *Registry {
	return &Registry{
		models:       make(map[string]*Model),
		targetSchema: targetSchema,
	}
}

// LoadDir loads all .sql model files from a directory, merging per-model
// config from a schema.yml (or schema.yaml) file in the same directory.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading model dir %s: %w", dir, err)
	}

	configs, err := loadSchemaFile(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		name := strings.TrimSuffix(entry.Name(), ".sql")
		if err := r.loadModel(path, name, configs[name]); err != nil {
			return fmt.Errorf("loading model %s: %w", path, err)
		}
	}
	return nil
}

func (r *Registry) loadModel(path, name string, cfg types.ModelConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	cfg.Name = name
	if err := ValidateConfig(&cfg); err != nil {
		return err
	}

	m := &Model{
		Config: cfg,
		RawSQL: strings.TrimSpace(string(data)),
		Path:   path,
	}
	if err := m.extractRefs(); err != nil {
		return err
	}

	if _, exists := r.models[name]; exists {
		return fmt.Errorf("duplicate model %q", name)
	}
	r.models[name] = m
	return nil
}

// loadSchemaFile reads schema.yml or schema.yaml from dir, keyed by model name.
// A missing file is fine; models then run with defaults.
func loadSchemaFile(dir string) (map[string]types.ModelConfig, error) {
	configs := make(map[string]types.ModelConfig)
	for _, base := range []string{"schema.yml", "schema.yaml"} {
		path := filepath.Join(dir, base)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var sf types.SchemaFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		for _, mc := range sf.Models {
			configs[mc.Name] = mc
		}
	}
	return configs, nil
}

// Get returns a model by name.
func (r *Registry) Get(name string) (*Model, error) {
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("model %q not found", name)
	}
	return m, nil
}

// List returns all models sorted by name.
func (r *Registry) List() []*Model {
	g := r.Graph()
	var result []*Model
	for _, n := range g.Nodes() {
		result = append(result, r.models[n])
	}
	return result
}

// Len returns the number of loaded models.
func (r *Registry) Len() int { return len(r.models) }

// RelationFor returns the relation a model materializes into.
func (r *Registry) RelationFor(name string) (types.Relation, error) {
	if _, ok := r.models[name]; !ok {
		return types.Relation{}, fmt.Errorf("model %q not found", name)
	}
	return types.Relation{Schema: r.targetSchema, Name: name}, nil
}

// Graph builds the dependency graph over the loaded models.
func (r *Registry) Graph() *dag.Graph {
	g := dag.New()
	for name, m := range r.models {
		g.AddNode(name, m.Deps)
	}
	return g
}

// Validate checks that every reference resolves and the graph is acyclic.
func (r *Registry) Validate() error {
	return r.Graph().Validate()
}

// Compile renders a model's SQL with relations resolved against the registry.
func (r *Registry) Compile(name string) (string, error) {
	m, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return m.Render(r.RelationFor)
}
