// Package config handles loading and validation of telemart.yaml project
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/telemart-systems/telemart/pkg/types"
)

// Load reads and parses telemart.yaml from the given directory. A .env file
// in the same directory is loaded first so ${VAR} references in the config
// can point at it.
func Load(dir string) (*types.ProjectConfig, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	path := filepath.Join(dir, "telemart.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	var cfg types.ProjectConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *types.ProjectConfig) {
	if cfg.Postgres != nil {
		if cfg.Postgres.Port == 0 {
			cfg.Postgres.Port = 5432
		}
		if cfg.Postgres.SSLMode == "" {
			cfg.Postgres.SSLMode = "disable"
		}
	}
	if cfg.Build == nil {
		cfg.Build = &types.BuildConfig{}
	}
	if cfg.Build.Concurrency == 0 {
		cfg.Build.Concurrency = 4
	}
	if cfg.Build.Timeout == "" {
		cfg.Build.Timeout = "10m"
	}
}

func validate(cfg *types.ProjectConfig) error {
	switch cfg.Target {
	case "postgres":
		if cfg.Postgres == nil {
			return fmt.Errorf("postgres config is required when target is postgres")
		}
		if cfg.Postgres.Host == "" {
			return fmt.Errorf("postgres.host is required")
		}
		if cfg.Postgres.Database == "" {
			return fmt.Errorf("postgres.database is required")
		}
		if cfg.Postgres.Schema == "" {
			return fmt.Errorf("postgres.schema is required")
		}
	case "duckdb":
		if cfg.DuckDB == nil {
			return fmt.Errorf("duckdb config is required when target is duckdb")
		}
		if cfg.DuckDB.Path == "" {
			return fmt.Errorf("duckdb.path is required")
		}
	case "":
		return fmt.Errorf("target is required")
	default:
		return fmt.Errorf("unknown target %q", cfg.Target)
	}

	if len(cfg.ModelDirs) == 0 {
		return fmt.Errorf("at least one modelDir is required")
	}

	if _, err := time.ParseDuration(cfg.Build.Timeout); err != nil {
		return fmt.Errorf("build.timeout: %w", err)
	}

	for _, a := range cfg.Alerts {
		switch a.Type {
		case types.AlertConsole:
		case types.AlertWebhook:
			if a.URL == "" {
				return fmt.Errorf("alert webhook url is required")
			}
		case types.AlertFile:
			if a.Path == "" {
				return fmt.Errorf("alert file path is required")
			}
		case types.AlertSNS:
			if a.TopicARN == "" {
				return fmt.Errorf("alert sns topicArn is required")
			}
		default:
			return fmt.Errorf("unknown alert type %q", a.Type)
		}
	}
	return nil
}

// TargetSchema returns the schema models materialize into for the configured
// target.
func TargetSchema(cfg *types.ProjectConfig) string {
	switch cfg.Target {
	case "postgres":
		return cfg.Postgres.Schema
	case "duckdb":
		if cfg.DuckDB.Schema != "" {
			return cfg.DuckDB.Schema
		}
		return "main"
	}
	return ""
}

// BuildTimeout returns the parsed per-run timeout. Validation guarantees the
// value parses.
func BuildTimeout(cfg *types.ProjectConfig) time.Duration {
	d, _ := time.ParseDuration(cfg.Build.Timeout)
	return d
}

// IsSecretRef reports whether a password value points at Secrets Manager
// instead of holding the literal secret.
func IsSecretRef(password string) bool {
	return strings.HasPrefix(password, "secretsmanager:")
}

// SecretARN extracts the ARN from a secretsmanager: password reference.
func SecretARN(password string) string {
	return strings.TrimPrefix(password, "secretsmanager:")
}
