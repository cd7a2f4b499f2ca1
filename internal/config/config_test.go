package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart-systems/telemart/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "telemart.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, `target: postgres
postgres:
  host: localhost
  database: telemart
  user: telemart
  password: secret
  schema: telegram_schema
server:
  addr: ":8000"
modelDirs:
  - ./models/staging
  - ./models/marts
alerts:
  - type: console
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Target)
	require.NotNil(t, cfg.Postgres)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port, "port defaults")
	assert.Equal(t, "disable", cfg.Postgres.SSLMode, "sslmode defaults")
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Len(t, cfg.ModelDirs, 2)
	assert.Len(t, cfg.Alerts, 1)
	assert.Equal(t, 4, cfg.Build.Concurrency)
	assert.Equal(t, 10*time.Minute, BuildTimeout(cfg))
	assert.Equal(t, "telegram_schema", TargetSchema(cfg))
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("PG_PASSWORD", "hunter2")
	dir := writeConfig(t, `target: postgres
postgres:
  host: localhost
  database: telemart
  user: telemart
  password: ${PG_PASSWORD}
  schema: telegram_schema
modelDirs:
  - ./models
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DOTENV_SCHEMA=telegram_schema\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "telemart.yaml"), []byte(`target: postgres
postgres:
  host: localhost
  database: telemart
  user: telemart
  schema: ${DOTENV_SCHEMA}
modelDirs:
  - ./models
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "telegram_schema", cfg.Postgres.Schema)
}

func TestLoad_DuckDBTarget(t *testing.T) {
	dir := writeConfig(t, `target: duckdb
duckdb:
  path: ./warehouse.duckdb
modelDirs:
  - ./models
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Target)
	assert.Equal(t, "main", TargetSchema(cfg))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := writeConfig(t, "invalid: [yaml")
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing target",
			content: "modelDirs:\n  - ./models\n",
			wantErr: "target is required",
		},
		{
			name:    "unknown target",
			content: "target: snowflake\nmodelDirs:\n  - ./models\n",
			wantErr: "unknown target",
		},
		{
			name:    "postgres without config",
			content: "target: postgres\nmodelDirs:\n  - ./models\n",
			wantErr: "postgres config is required",
		},
		{
			name: "missing model dirs",
			content: `target: duckdb
duckdb:
  path: ./w.duckdb
`,
			wantErr: "modelDir",
		},
		{
			name: "bad timeout",
			content: `target: duckdb
duckdb:
  path: ./w.duckdb
build:
  timeout: soon
modelDirs:
  - ./models
`,
			wantErr: "build.timeout",
		},
		{
			name: "webhook without url",
			content: `target: duckdb
duckdb:
  path: ./w.duckdb
modelDirs:
  - ./models
alerts:
  - type: webhook
`,
			wantErr: "webhook url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, tt.content)
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

type mockSecrets struct {
	values map[string]string
}

func (m *mockSecrets) GetSecretValue(_ context.Context, input *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	v, ok := m.values[*input.SecretId]
	if !ok {
		return nil, assert.AnError
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestResolveSecrets(t *testing.T) {
	cfg := &types.ProjectConfig{
		Postgres: &types.PostgresConfig{
			Password: "secretsmanager:arn:aws:secretsmanager:us-east-1:123:secret:pg",
		},
	}
	mock := &mockSecrets{values: map[string]string{
		"arn:aws:secretsmanager:us-east-1:123:secret:pg": "s3cret",
	}}

	require.NoError(t, ResolveSecrets(context.Background(), cfg, mock))
	assert.Equal(t, "s3cret", cfg.Postgres.Password)
}

func TestResolveSecrets_LiteralPasswordUntouched(t *testing.T) {
	cfg := &types.ProjectConfig{
		Postgres: &types.PostgresConfig{Password: "plain"},
	}
	require.NoError(t, ResolveSecrets(context.Background(), cfg, &mockSecrets{}))
	assert.Equal(t, "plain", cfg.Postgres.Password)
}

func TestResolveSecrets_MissingSecret(t *testing.T) {
	cfg := &types.ProjectConfig{
		Postgres: &types.PostgresConfig{Password: "secretsmanager:nope"},
	}
	err := ResolveSecrets(context.Background(), cfg, &mockSecrets{})
	assert.Error(t, err)
}
