package runtime

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auroraview/internal/overlay"
)

func buildOverlayFile(t *testing.T) string {
	t.Helper()
	header := []byte(`{"entry_point":"index.html","mode":"full-stack","meta":{}}`)
	assets := map[string][]byte{
		"index.html":     []byte("<html></html>"),
		"python/main.py":  []byte("print('hi')"),
	}

	var out bytes.Buffer
	out.WriteString("#!/bin/fake-stub\n")
	require.NoError(t, overlay.Build(&out, header, assets))

	path := filepath.Join(t.TempDir(), "packed-app")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o755))
	return path
}

func TestDetectAndExtract(t *testing.T) {
	path := buildOverlayFile(t)

	r, err := Detect(path)
	require.NoError(t, err)

	e, err := New(t.TempDir())
	require.NoError(t, err)

	extracted, err := e.Extract(r)
	require.NoError(t, err)
	assert.Equal(t, "index.html", extracted.Header.EntryPoint)
	assert.Equal(t, "full-stack", extracted.Header.Mode)

	data, err := os.ReadFile(filepath.Join(extracted.Python, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(data))

	marker := filepath.Join(extracted.Dir, versionMarkerFile)
	_, err = os.Stat(marker)
	require.NoError(t, err)
}

func TestExtractIsIdempotentViaVersionMarker(t *testing.T) {
	path := buildOverlayFile(t)
	r, err := Detect(path)
	require.NoError(t, err)

	cacheRoot := t.TempDir()
	e, err := New(cacheRoot)
	require.NoError(t, err)

	first, err := e.Extract(r)
	require.NoError(t, err)

	// Remove the LRU's in-process record, forcing the marker-file path.
	e2, err := New(cacheRoot)
	require.NoError(t, err)
	second, err := e2.Extract(r)
	require.NoError(t, err)

	assert.Equal(t, first.Dir, second.Dir)
}

func TestDetectNonPackedReturnsErrNotPacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain-binary")
	require.NoError(t, os.WriteFile(path, []byte("not packed at all"), 0o755))

	_, err := Detect(path)
	assert.ErrorIs(t, err, overlay.ErrNotPacked)
}
