package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://search.dip.bundestag.de/api/v1", config.DIP.BaseURL)
	assert.Equal(t, "gemini-2.5-pro", config.Gemini.Model)
	assert.Equal(t, "protokollmine.db", config.Storage.Database)
	assert.Equal(t, 1, config.Workers.Count)
	assert.Equal(t, 30*time.Second, config.DIPTimeout())
	assert.Empty(t, config.Schedule.Cron)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
dip:
  api_key: file-key
  timeout_seconds: 10
workers:
  count: 4
schedule:
  cron: "0 6 * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "file-key", config.DIP.APIKey)
	assert.Equal(t, 10*time.Second, config.DIPTimeout())
	assert.Equal(t, 4, config.Workers.Count)
	assert.Equal(t, "0 6 * * *", config.Schedule.Cron)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://search.dip.bundestag.de/api/v1", config.DIP.BaseURL)
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("DIP_API_KEY", "env-dip-key")
	t.Setenv("GEMINI_API_KEY", "env-gemini-key")

	config, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-dip-key", config.DIP.APIKey)
	assert.Equal(t, "env-gemini-key", config.Gemini.APIKey)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}
