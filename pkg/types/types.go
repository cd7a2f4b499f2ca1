// Package types defines the public domain types for the telemart SQL mart builder.
package types

// Materialization defines how a model's query result is persisted.
type Materialization string

// Materialization values enumerate the supported model materializations.
const (
	// MaterializationView exposes the query as a view, recomputed on every read.
	MaterializationView Materialization = "view"
	// MaterializationTable fully rebuilds a table from the query on every run.
	MaterializationTable Materialization = "table"
)

// CheckStatus represents the outcome of a single data check.
type CheckStatus string

// CheckStatus values enumerate the possible check outcomes.
const (
	CheckPass  CheckStatus = "PASS"
	CheckFail  CheckStatus = "FAIL"
	CheckError CheckStatus = "ERROR"
)

// CheckType names a builtin data check.
type CheckType string

// CheckType values enumerate the builtin data checks.
const (
	CheckNotNull       CheckType = "not_null"
	CheckUnique        CheckType = "unique"
	CheckExpression    CheckType = "expression"
	CheckRowCountMatch CheckType = "row_count_match"
	CheckRowCountLTE   CheckType = "row_count_lte"
	CheckDateSpine     CheckType = "date_spine"
)

// CheckConfig declares a data check on a model in schema.yml.
type CheckConfig struct {
	Type   CheckType              `yaml:"type" json:"type"`
	Column string                 `yaml:"column,omitempty" json:"column,omitempty"`
	Config map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
}

// ColumnConfig documents a model column in schema.yml.
type ColumnConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ModelConfig is the declarative configuration for one model, merged from its
// schema.yml entry. The SQL body itself lives in the model's .sql file.
type ModelConfig struct {
	Name            string          `yaml:"name" json:"name"`
	Description     string          `yaml:"description,omitempty" json:"description,omitempty"`
	Materialization Materialization `yaml:"materialization,omitempty" json:"materialization,omitempty"`
	Columns         []ColumnConfig  `yaml:"columns,omitempty" json:"columns,omitempty"`
	Checks          []CheckConfig   `yaml:"checks,omitempty" json:"checks,omitempty"`
}

// SchemaFile is the shape of a schema.yml file in a model directory.
type SchemaFile struct {
	Models []ModelConfig `yaml:"models"`
}

// Relation identifies a schema-qualified relation in the target warehouse.
type Relation struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// String returns the schema-qualified relation name.
func (r Relation) String() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}
