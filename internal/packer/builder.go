package packer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"auroraview/internal/aerrors"
	"auroraview/internal/alog"
	"auroraview/internal/netfetch"
	"auroraview/internal/overlay"
	"auroraview/internal/packer/htmlrewrite"
)

// maxConcurrentFileReads bounds how many files a source-tree collector
// reads in parallel (spec §4.2 "Concurrency": parallelism is delegated
// to subprocesses/worker pools, never the stage pipeline itself).
const maxConcurrentFileReads = 8

// collectTree walks root for files matching include, then reads and
// transforms each one concurrently (bounded by maxConcurrentFileReads)
// before storing the result under assets[keyFn(rel)]. The directory
// walk itself stays sequential (it is cheap stat/readdir traffic);
// only the file reads, which dominate cost for large frontend/source
// trees, run in the errgroup.
func collectTree(
	ctx context.Context,
	root string,
	mu *sync.Mutex,
	assets map[string][]byte,
	skipDir func(name string) bool,
	include func(rel string) bool,
	keyFn func(rel string) string,
	transform func(rel string, data []byte) ([]byte, error),
) error {
	type file struct{ path, rel string }
	var files []file

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir != nil && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if include != nil && !include(rel) {
			return nil
		}
		files = append(files, file{path: path, rel: rel})
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFileReads)
	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(f.path)
			if err != nil {
				return err
			}
			if transform != nil {
				if data, err = transform(f.rel, data); err != nil {
					return err
				}
			}
			mu.Lock()
			assets[keyFn(f.rel)] = data
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// StageMetrics records per-stage pipeline durations; nil-safe,
// satisfied by *telemetry.Metrics.
type StageMetrics interface {
	ObserveStage(stage string, seconds float64)
}

// BuildContext threads state through the stage pipeline; hooks receive
// it so they can inspect or annotate the in-progress build.
type BuildContext struct {
	Config    Config
	TempDir   string
	Assets    map[string][]byte
	Meta      map[string]any // scripting-backend / extension metadata, folded into the overlay header
	Ctx       context.Context
}

// Builder drives one platform's pack pipeline. Its stages run one
// after another; within a stage, collectTree reads files on up to
// maxConcurrentFileReads goroutines, and package installs and resource
// editing run as subprocesses.
type Builder struct {
	cfg     Config
	fetcher *netfetch.Client
	log     *alog.Logger

	// Metrics, when set, records each stage's wall-clock duration.
	Metrics StageMetrics
}

// New creates a Builder for cfg.
func New(cfg Config) *Builder {
	if cfg.HookTimeout == 0 {
		cfg.HookTimeout = DefaultHookTimeout
	}
	return &Builder{cfg: cfg, fetcher: netfetch.New("packer-downloads"), log: alog.Packer}
}

// Run executes every stage in order. On failure it invokes the
// on-error hook and removes the per-build temp directory (never the
// shared download cache), per spec §4.2.
func (b *Builder) Run(ctx context.Context) (err error) {
	tmp, err := os.MkdirTemp("", "auroraview-pack-*")
	if err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "packer.run", err)
	}

	bc := &BuildContext{
		Config:  b.cfg,
		TempDir: tmp,
		Assets:  make(map[string][]byte),
		Meta:    make(map[string]any),
		Ctx:     ctx,
	}

	defer func() {
		if err != nil && b.cfg.Hooks.OnError != nil {
			b.cfg.Hooks.OnError(bc, err)
		}
		os.RemoveAll(tmp)
	}()

	stages := []struct {
		name string
		fn   func(*BuildContext) error
	}{
		{"validate", b.validate},
		{"before-pack", b.runHook(b.cfg.Hooks.BeforePack)},
		{"collect-assets", b.collectAssets},
		{"collect-scripting-backend", b.collectScriptingBackend},
		{"collect-extensions", b.collectExtensions},
		{"before-overlay", b.runHook(b.cfg.Hooks.BeforeOverlay)},
		{"build-overlay", b.buildOverlay},
		{"apply-resources", b.applyResources},
		{"after-pack", b.runHook(b.cfg.Hooks.AfterPack)},
	}

	for _, stage := range stages {
		b.log.Info("stage %s starting", stage.name)
		stageStart := time.Now()
		err = stage.fn(bc)
		if b.Metrics != nil {
			b.Metrics.ObserveStage(stage.name, time.Since(stageStart).Seconds())
		}
		if err != nil {
			return aerrors.Wrap(aerrors.StateViolation, "packer."+stage.name, err)
		}
	}
	return nil
}

func (b *Builder) runHook(h func(*BuildContext) error) func(*BuildContext) error {
	return func(bc *BuildContext) error {
		if h == nil {
			return nil
		}
		return h(bc)
	}
}

// validate checks that the frontend path exists and is a directory and
// that the entry point is non-empty (spec §4.2 step 1). An http(s)
// entry point is accepted as is; its reachability is not checked.
func (b *Builder) validate(bc *BuildContext) error {
	if strings.HasPrefix(b.cfg.EntryPoint, "http://") || strings.HasPrefix(b.cfg.EntryPoint, "https://") {
		return nil
	}
	if b.cfg.FrontendPath == "" {
		return aerrors.New(aerrors.InvalidArgument, "packer.validate", "frontend path is required when entry point is not a URL")
	}
	info, err := os.Stat(b.cfg.FrontendPath)
	if err != nil {
		return aerrors.Wrap(aerrors.InvalidArgument, "packer.validate", err)
	}
	if !info.IsDir() {
		return aerrors.New(aerrors.InvalidArgument, "packer.validate", "frontend path is not a directory")
	}
	if b.cfg.EntryPoint == "" {
		return aerrors.New(aerrors.InvalidArgument, "packer.validate", "entry point is required")
	}
	return nil
}

// collectAssets walks the frontend directory, rewriting HTML/CSS
// resource references to the custom scheme (spec §4.2 step 3, invariant 6).
func (b *Builder) collectAssets(bc *BuildContext) error {
	if b.cfg.FrontendPath == "" {
		return nil
	}
	var mu sync.Mutex
	return collectTree(bc.Ctx, b.cfg.FrontendPath, &mu, bc.Assets, nil, nil,
		func(rel string) string { return rel },
		func(rel string, data []byte) ([]byte, error) {
			switch strings.ToLower(filepath.Ext(rel)) {
			case ".html", ".htm":
				rewritten, err := htmlrewrite.HTML(data)
				if err != nil {
					return nil, fmt.Errorf("rewrite %s: %w", rel, err)
				}
				return rewritten, nil
			case ".css":
				return []byte(htmlrewrite.CSS(string(data))), nil
			}
			return data, nil
		})
}

// transientDirs are skipped when walking scripting-backend source
// trees (spec §4.2 step 4).
var transientDirs = map[string]bool{
	"__pycache__": true, ".git": true, ".venv": true, "node_modules": true,
}

var backendSourceExts = map[string]bool{
	".py": true, ".pyi": true, ".json": true, ".txt": true, ".toml": true,
	".yaml": true, ".yml": true, ".cfg": true, ".ini": true,
}

// collectScriptingBackend downloads the interpreter archive (if
// configured), walks source roots into assets under "python/", and
// installs declared packages into "python/site-packages/" (spec §4.2
// step 4).
func (b *Builder) collectScriptingBackend(bc *BuildContext) error {
	if b.cfg.Mode != ModeFullStack {
		return nil
	}
	cfg := b.cfg.ScriptingBackend

	if cfg.DownloadURL != "" {
		archivePath, err := b.ensureInterpreter(bc, cfg)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(archivePath)
		if err != nil {
			return aerrors.Wrap(aerrors.IoFailure, "packer.collect_scripting_backend", err)
		}
		bc.Assets["python/interpreter.archive"] = raw
		bc.Meta["interpreter"] = map[string]any{"target": cfg.Target, "size": len(raw)}
	}
	if cfg.EntryFile != "" || cfg.EntryModule != "" {
		bc.Meta["backend_entry"] = map[string]any{"entry_file": cfg.EntryFile, "entry_module": cfg.EntryModule}
	}

	for _, root := range cfg.IncludePaths {
		if err := b.walkBackendSource(bc, root, cfg.ExcludeGlobs); err != nil {
			return err
		}
	}

	if len(cfg.Packages) > 0 {
		if err := b.installPackages(bc, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) ensureInterpreter(bc *BuildContext, cfg ScriptingBackendConfig) (string, error) {
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "auroraview-interpreter-cache")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", aerrors.Wrap(aerrors.IoFailure, "packer.ensure_interpreter", err)
	}

	dest := filepath.Join(cacheDir, cfg.Target+".archive")
	if info, err := os.Stat(dest); err == nil && info.Size() >= netfetch.MinSize {
		return dest, nil
	}

	if err := b.fetcher.Download(bc.Ctx, cfg.DownloadURL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (b *Builder) walkBackendSource(bc *BuildContext, root string, excludeGlobs []string) error {
	var mu sync.Mutex
	return collectTree(bc.Ctx, root, &mu, bc.Assets,
		func(name string) bool {
			return transientDirs[name] || strings.HasSuffix(name, ".tox")
		},
		func(rel string) bool {
			if !backendSourceExts[strings.ToLower(filepath.Ext(rel))] {
				return false
			}
			for _, glob := range excludeGlobs {
				if matched, _ := filepath.Match(glob, rel); matched {
					return false
				}
			}
			return true
		},
		func(rel string) string { return "python/" + rel },
		nil)
}

// installPackages installs declared packages into a temp target
// directory without compilation or transitive deps, then relocates
// the tree under "python/site-packages/" (spec §4.2 step 4).
func (b *Builder) installPackages(bc *BuildContext, cfg ScriptingBackendConfig) error {
	target := filepath.Join(bc.TempDir, "site-packages")
	if err := os.MkdirAll(target, 0o755); err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "packer.install_packages", err)
	}

	ctx, cancel := context.WithTimeout(bc.Ctx, b.cfg.HookTimeout)
	defer cancel()

	args := []string{"install", "--no-compile", "--no-deps", "--target", target}
	args = append(args, cfg.Packages...)
	if err := runSubprocess(ctx, "pip", args...); err != nil {
		return aerrors.Wrap(aerrors.SubprocessFailure, "packer.install_packages", err)
	}

	var mu sync.Mutex
	return collectTree(bc.Ctx, target, &mu, bc.Assets, nil, nil,
		func(rel string) string { return "python/site-packages/" + rel },
		nil)
}

// collectExtensions downloads store-ID extensions (or copies local
// ones) into "extensions/<id>/" (spec §4.2 step 5).
func (b *Builder) collectExtensions(bc *BuildContext) error {
	for _, ext := range b.cfg.Extensions {
		switch {
		case ext.StoreID != "":
			if b.cfg.OfflineMode {
				return aerrors.New(aerrors.NetworkFailure, "packer.collect_extensions", "offline mode forbids web-store fetches")
			}
			if err := b.collectStoreExtension(bc, ext.StoreID); err != nil {
				return err
			}
		case ext.LocalPath != "":
			if err := b.copyLocalExtension(bc, ext.LocalPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) collectStoreExtension(bc *BuildContext, storeID string) error {
	dest := filepath.Join(bc.TempDir, storeID+".bundle")
	url := "https://extensions.auroraview.dev/update/" + storeID
	if err := b.fetcher.Download(bc.Ctx, url, dest); err != nil {
		return err
	}
	raw, err := os.ReadFile(dest)
	if err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "packer.collect_store_extension", err)
	}
	if len(raw) < 4 || string(raw[:4]) != "AVX1" {
		return aerrors.New(aerrors.InvalidArgument, "packer.collect_store_extension", "extension bundle has invalid magic header")
	}
	bc.Assets["extensions/"+storeID+"/bundle.avx"] = raw[4:]
	return nil
}

func (b *Builder) copyLocalExtension(bc *BuildContext, localPath string) error {
	id := filepath.Base(localPath)
	var mu sync.Mutex
	return collectTree(bc.Ctx, localPath, &mu, bc.Assets, nil, nil,
		func(rel string) string { return "extensions/" + id + "/" + rel },
		nil)
}

// buildOverlay copies the running executable as a stub and appends
// the versioned container (spec §4.2 step 7).
func (b *Builder) buildOverlay(bc *BuildContext) error {
	self, err := os.Executable()
	if err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "packer.build_overlay", err)
	}

	if info, err := os.Stat(b.cfg.OutputPath); err == nil && info.Mode()&0o200 == 0 {
		return aerrors.New(aerrors.IoFailure, "packer.build_overlay", "output path is locked (not writable)")
	}

	out, err := os.OpenFile(b.cfg.OutputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "packer.build_overlay", err)
	}
	defer out.Close()

	stub, err := os.Open(self)
	if err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "packer.build_overlay", err)
	}
	defer stub.Close()
	if _, err := io.Copy(out, stub); err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "packer.build_overlay", err)
	}

	header, err := json.Marshal(map[string]any{
		"entry_point": b.cfg.EntryPoint,
		"mode":        b.cfg.Mode,
		"meta":        bc.Meta,
	})
	if err != nil {
		return aerrors.Wrap(aerrors.InvalidArgument, "packer.build_overlay", err)
	}

	if err := overlay.Build(out, header, bc.Assets); err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "packer.build_overlay", err)
	}
	return nil
}

// applyResources drives the Windows PE resource editor (spec §4.2
// step 8). It is a no-op on non-Windows targets or when disabled.
func (b *Builder) applyResources(bc *BuildContext) error {
	if !b.cfg.Windows.Enabled || runtime.GOOS != "windows" {
		return nil
	}
	ctx, cancel := context.WithTimeout(bc.Ctx, b.cfg.HookTimeout)
	defer cancel()

	args := []string{b.cfg.OutputPath}
	if b.cfg.Windows.IconPath != "" {
		args = append(args, "--set-icon", b.cfg.Windows.IconPath)
	}
	if b.cfg.Windows.ProductVersion != "" {
		args = append(args, "--set-version-string", "ProductVersion", b.cfg.Windows.ProductVersion)
	}
	if b.cfg.Windows.FileVersion != "" {
		args = append(args, "--set-file-version", b.cfg.Windows.FileVersion)
	}
	if b.cfg.Windows.Description != "" {
		args = append(args, "--set-version-string", "FileDescription", b.cfg.Windows.Description)
	}
	if b.cfg.Windows.Copyright != "" {
		args = append(args, "--set-version-string", "LegalCopyright", b.cfg.Windows.Copyright)
	}
	if b.cfg.Windows.GUISubsystem {
		args = append(args, "--set-subsystem", "windows")
	}

	if err := runSubprocess(ctx, "rcedit", args...); err != nil {
		return aerrors.Wrap(aerrors.SubprocessFailure, "packer.apply_resources", err)
	}
	return nil
}
