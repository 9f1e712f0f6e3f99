package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "metasync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
source:
  workspace_url: https://workspace.example.com
  access_token: token123
warehouse:
  host: localhost
  user: root
  database: metadata
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://workspace.example.com", cfg.Source.WorkspaceURL)
	assert.Equal(t, 3306, cfg.Warehouse.Port)
	assert.Equal(t, 500, cfg.Processing.BatchSize)
	assert.Equal(t, 4, cfg.Processing.Workers)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "metasync-checkpoint.json", cfg.Checkpoint.Path)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
source:
  workspace_url: https://workspace.example.com
  access_token: token123
  catalog_filter: "main, analytics"
  page_size: 50
warehouse:
  host: db.internal
  port: 3307
  user: sync
  database: metadata
processing:
  batch_size: 200
  workers: 8
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3307, cfg.Warehouse.Port)
	assert.Equal(t, 200, cfg.Processing.BatchSize)
	assert.Equal(t, 8, cfg.Processing.Workers)
	assert.Equal(t, 50, cfg.Source.PageSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"main", "analytics"}, cfg.Source.AllowList())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/metasync.yaml")
	assert.Error(t, err)
}

func TestEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_METASYNC_TOKEN", "secret-token")
	t.Setenv("TEST_METASYNC_PASS", "secret-pass")

	path := writeTempConfig(t, `
source:
  workspace_url: https://workspace.example.com
  access_token: ${TEST_METASYNC_TOKEN}
warehouse:
  host: localhost
  user: root
  password: ${TEST_METASYNC_PASS}
  database: metadata
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Source.AccessToken)
	assert.Equal(t, "secret-pass", cfg.Warehouse.Password)
}

func TestEnvVarSubstitutionMissingVarKeptVerbatim(t *testing.T) {
	path := writeTempConfig(t, `
source:
  workspace_url: https://workspace.example.com
  access_token: ${DEFINITELY_NOT_SET_METASYNC}
warehouse:
  host: localhost
  user: root
  database: metadata
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Unset variables stay as-is so validation surfaces them to the user.
	assert.Equal(t, "${DEFINITELY_NOT_SET_METASYNC}", cfg.Source.AccessToken)
}

func TestAllowListParsing(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"single", "main", []string{"main"}},
		{"multiple with spaces", " main , analytics ,prod", []string{"main", "analytics", "prod"}},
		{"trailing comma", "main,", []string{"main"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SourceConfig{CatalogFilter: tt.filter}
			assert.Equal(t, tt.want, s.AllowList())
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides("debug", "text", 100, 2, true)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 100, cfg.Processing.BatchSize)
	assert.Equal(t, 2, cfg.Processing.Workers)
	assert.True(t, cfg.Verification.SkipVerification)

	// Zero values leave the config untouched.
	cfg.ApplyOverrides("", "", 0, 0, false)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 100, cfg.Processing.BatchSize)
	assert.True(t, cfg.Verification.SkipVerification)
}
