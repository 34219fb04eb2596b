package packer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auroraview/internal/overlay"
)

func writeFrontend(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte(`<html><head><link rel="stylesheet" href="./style.css"></head><body></body></html>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte(`body { background: url('./bg.png'); }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bg.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))
}

func TestBuilderFrontendOnlyPack(t *testing.T) {
	frontendDir := t.TempDir()
	writeFrontend(t, frontendDir)

	outDir := t.TempDir()
	outputPath := filepath.Join(outDir, "packed")

	cfg := Config{
		FrontendPath: frontendDir,
		EntryPoint:   "index.html",
		OutputPath:   outputPath,
		Mode:         ModeFrontendOnly,
	}

	var hooksCalled []string
	cfg.Hooks.BeforePack = func(bc *BuildContext) error { hooksCalled = append(hooksCalled, "before-pack"); return nil }
	cfg.Hooks.BeforeOverlay = func(bc *BuildContext) error { hooksCalled = append(hooksCalled, "before-overlay"); return nil }
	cfg.Hooks.AfterPack = func(bc *BuildContext) error { hooksCalled = append(hooksCalled, "after-pack"); return nil }

	b := New(cfg)
	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, []string{"before-pack", "before-overlay", "after-pack"}, hooksCalled)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	r, err := overlay.Detect(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	html, err := r.ReadAsset("index.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), `href="auroraview://style.css"`)

	css, err := r.ReadAsset("style.css")
	require.NoError(t, err)
	assert.Contains(t, string(css), "url('auroraview://bg.png')")

	png, err := r.ReadAsset("bg.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png)
}

func TestBuilderValidateRejectsMissingFrontend(t *testing.T) {
	cfg := Config{
		FrontendPath: "/does/not/exist",
		EntryPoint:   "index.html",
		OutputPath:   filepath.Join(t.TempDir(), "packed"),
	}
	b := New(cfg)
	err := b.Run(context.Background())
	require.Error(t, err)
}

func TestBuilderRunsOnErrorHookAndCleansTempDir(t *testing.T) {
	cfg := Config{
		FrontendPath: "/does/not/exist",
		EntryPoint:   "index.html",
		OutputPath:   filepath.Join(t.TempDir(), "packed"),
	}
	var capturedTemp string
	var onErrorCalled bool
	cfg.Hooks.OnError = func(bc *BuildContext, err error) {
		onErrorCalled = true
		capturedTemp = bc.TempDir
	}

	b := New(cfg)
	err := b.Run(context.Background())
	require.Error(t, err)
	assert.True(t, onErrorCalled)

	_, statErr := os.Stat(capturedTemp)
	assert.True(t, os.IsNotExist(statErr), "temp dir should be removed after failure")
}
