package types

// PostgresConfig holds connection settings for a Postgres warehouse target.
// Password supports ${ENV_VAR} expansion and the secretsmanager:<arn> scheme.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
	Schema   string `yaml:"schema"`
}

// DuckDBConfig holds settings for a local DuckDB warehouse target.
type DuckDBConfig struct {
	Path   string `yaml:"path"`
	Schema string `yaml:"schema,omitempty"`
}

// StoreConfig configures the run metadata store. When DSN is empty no store
// is used: builds still run, but history is not persisted and the run
// history endpoints report the store as unavailable.
type StoreConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// BuildConfig holds engine-level settings.
type BuildConfig struct {
	Concurrency int    `yaml:"concurrency,omitempty"`
	Timeout     string `yaml:"timeout,omitempty"` // per-run, e.g. "10m"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	APIKey         string `yaml:"apiKey,omitempty"`
	MaxRequestBody int64  `yaml:"maxRequestBody,omitempty"`
}

// AlertConfig defines an alert sink configuration.
type AlertConfig struct {
	Type     AlertType `yaml:"type" json:"type"`
	URL      string    `yaml:"url,omitempty" json:"url,omitempty"`
	Path     string    `yaml:"path,omitempty" json:"path,omitempty"`
	TopicARN string    `yaml:"topicArn,omitempty" json:"topicArn,omitempty"`
}

// ObservabilityConfig configures optional OTLP trace/metric export.
type ObservabilityConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty"`
	ServiceName string `yaml:"serviceName,omitempty"`
	Insecure    bool   `yaml:"insecure,omitempty"`
}

// ProjectConfig represents the top-level telemart.yaml configuration.
type ProjectConfig struct {
	Target        string               `yaml:"target"`
	Postgres      *PostgresConfig      `yaml:"postgres,omitempty"`
	DuckDB        *DuckDBConfig        `yaml:"duckdb,omitempty"`
	Store         *StoreConfig         `yaml:"store,omitempty"`
	Build         *BuildConfig         `yaml:"build,omitempty"`
	Server        *ServerConfig        `yaml:"server,omitempty"`
	ModelDirs     []string             `yaml:"modelDirs"`
	Alerts        []AlertConfig        `yaml:"alerts,omitempty"`
	Observability *ObservabilityConfig `yaml:"observability,omitempty"`
}
