package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LEDGERIMPORT_STORE_BACKEND", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "default-income", cfg.Import.DirectionPolicy)
	assert.Equal(t, 100, cfg.Queue.BufferSize)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.NotEmpty(t, cfg.Classify.Endpoint)
	assert.NotEmpty(t, cfg.Classify.Model)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LEDGERIMPORT_PORT", "9090")
	t.Setenv("LEDGERIMPORT_STORE_BACKEND", "memory")
	t.Setenv("LEDGERIMPORT_IMPORT_DIRECTION_POLICY", "reject")
	t.Setenv("LEDGERIMPORT_CLASSIFY_API_KEY", "secret")
	t.Setenv("LEDGERIMPORT_AUTH_TOKEN", "token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "reject", cfg.Import.DirectionPolicy)
	assert.Equal(t, "secret", cfg.Classify.APIKey)
	assert.Equal(t, "token", cfg.AuthToken)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
port: "7070"
store:
  backend: firestore
  project: test-project
queue:
  workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "firestore", cfg.Store.Backend)
	assert.Equal(t, "test-project", cfg.Store.Project)
	assert.Equal(t, 2, cfg.Queue.Workers)
}

func TestLoad_FirestoreRequiresProject(t *testing.T) {
	t.Setenv("LEDGERIMPORT_STORE_BACKEND", "firestore")
	t.Setenv("LEDGERIMPORT_STORE_PROJECT", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.project")
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("LEDGERIMPORT_STORE_BACKEND", "mysql")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_UnknownDirectionPolicy(t *testing.T) {
	t.Setenv("LEDGERIMPORT_STORE_BACKEND", "memory")
	t.Setenv("LEDGERIMPORT_IMPORT_DIRECTION_POLICY", "coinflip")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}
