package appconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRunConfigDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("url: https://example.com\ntitle: Example\n"), 0o644))

	cfg, err := LoadRunConfig(cfgPath, map[string]any{"debug": true})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.URL)
	assert.Equal(t, "Example", cfg.Title)
	assert.Equal(t, 1024, cfg.Width)
	assert.True(t, cfg.Debug)
}

func TestLoadRunConfigEnvOverride(t *testing.T) {
	t.Setenv("AURORAVIEW_TITLE", "From Env")
	cfg, err := LoadRunConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "From Env", cfg.Title)
}

func TestLoadPackConfigParsesNestedStructures(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pack.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
frontend_path: ./frontend
entry_point: index.html
output_path: ./dist/app
mode: full-stack
scripting:
  target: cpython-3.11-x86_64-linux
  include_paths: ["./pysrc"]
  packages: ["requests==2.31.0"]
extensions:
  - store_id: abc123
  - local_path: ./ext/local-one
windows:
  enabled: true
  icon_path: ./app.ico
`), 0o644))

	cfg, err := LoadPackConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "full-stack", cfg.Mode)
	assert.Equal(t, "cpython-3.11-x86_64-linux", cfg.Scripting.Target)
	require.Len(t, cfg.Extensions, 2)
	assert.Equal(t, "abc123", cfg.Extensions[0].StoreID)
	assert.True(t, cfg.Windows.Enabled)
}
