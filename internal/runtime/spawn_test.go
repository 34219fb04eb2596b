package runtime

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnBackendEntryFile(t *testing.T) {
	extractDir := t.TempDir()
	env := Environment{Path: "/usr/bin", ModuleSearch: extractDir}

	cmd, err := SpawnBackend(context.Background(), "/usr/bin/python3", BackendTarget{EntryFile: "main.py"}, extractDir, env)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(extractDir, "main.py"), cmd.Args[1])
	assert.Equal(t, extractDir, cmd.Dir)
	assert.Contains(t, cmd.Env, "PATH=/usr/bin")
}

func TestSpawnBackendModuleFunction(t *testing.T) {
	extractDir := t.TempDir()
	env := Environment{Path: "/usr/bin", ModuleSearch: extractDir}

	cmd, err := SpawnBackend(context.Background(), "/usr/bin/python3", BackendTarget{EntryModule: "app.server:main"}, extractDir, env)
	require.NoError(t, err)

	assert.Equal(t, "-c", cmd.Args[1])
	assert.Contains(t, cmd.Args[2], "import app.server")
	assert.Contains(t, cmd.Args[2], "app.server.main()")
}

func TestSpawnBackendRejectsMalformedModuleFunction(t *testing.T) {
	extractDir := t.TempDir()
	_, err := SpawnBackend(context.Background(), "/usr/bin/python3", BackendTarget{EntryModule: "no-colon-here"}, extractDir, Environment{})
	assert.Error(t, err)
}

func TestSpawnBackendRequiresOneTarget(t *testing.T) {
	extractDir := t.TempDir()
	_, err := SpawnBackend(context.Background(), "/usr/bin/python3", BackendTarget{}, extractDir, Environment{})
	assert.Error(t, err)
}
