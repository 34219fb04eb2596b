package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"auroraview/internal/apppaths"
	"auroraview/internal/overlay"
	"auroraview/internal/protocolhandler"
	"auroraview/internal/runtime"
	"auroraview/internal/webviewhost"
)

// runPackedIfDetected implements the stub's program-start overlay
// check (spec §4.2 "At program start, the stub detects the overlay by
// reading the trailer; if absent, it runs in 'cli' mode"). It returns
// (false, nil) when no overlay is present so main() falls through to
// the normal cobra CLI; otherwise it drives the full packed control
// flow and returns once the window has closed.
func runPackedIfDetected(ctx context.Context) (handled bool, err error) {
	self, err := os.Executable()
	if err != nil {
		return false, nil
	}

	reader, err := runtime.Detect(self)
	if err != nil {
		if errors.Is(err, overlay.ErrNotPacked) {
			return false, nil
		}
		return false, err
	}

	header, backendEntry, interpMeta, err := decodeHeader(reader)
	if err != nil {
		return true, err
	}

	cacheRoot, err := apppaths.CacheDir()
	if err != nil {
		return true, err
	}
	extractor, err := runtime.New(cacheRoot)
	if err != nil {
		return true, err
	}
	extracted, err := extractor.Extract(reader)
	if err != nil {
		return true, err
	}

	if backendEntry.EntryFile != "" || backendEntry.EntryModule != "" {
		if err := spawnPackedBackend(ctx, extracted, backendEntry, interpMeta); err != nil {
			fmt.Fprintln(os.Stderr, red("error: scripting backend failed to start: "+err.Error()))
		}
	}

	return true, runPackedWindow(ctx, reader, header)
}

type backendEntryMeta struct {
	EntryFile   string
	EntryModule string
}

func decodeHeader(reader *overlay.Reader) (map[string]any, backendEntryMeta, map[string]any, error) {
	var h struct {
		EntryPoint string         `json:"entry_point"`
		Mode       string         `json:"mode"`
		Meta       map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(reader.Header(), &h); err != nil {
		return nil, backendEntryMeta{}, nil, err
	}

	var entry backendEntryMeta
	var interp map[string]any
	if be, ok := h.Meta["backend_entry"].(map[string]any); ok {
		entry.EntryFile, _ = be["entry_file"].(string)
		entry.EntryModule, _ = be["entry_module"].(string)
	}
	if i, ok := h.Meta["interpreter"].(map[string]any); ok {
		interp = i
	}

	return map[string]any{"entry_point": h.EntryPoint, "mode": h.Mode}, entry, interp, nil
}

// spawnPackedBackend starts the scripting backend under the isolated
// environment the extractor built, honoring the AURORAVIEW_ISOLATE_*
// environment variables the packed parent's own environment carries
// (spec §4.2 step 5, §6 "Environment variables consumed at runtime").
func spawnPackedBackend(ctx context.Context, extracted runtime.Extracted, entry backendEntryMeta, interpMeta map[string]any) error {
	isolate := os.Getenv("AURORAVIEW_ISOLATE_PATH") != "0" && os.Getenv("AURORAVIEW_ISOLATE_PYTHONPATH") != "0"

	interpreterHome := filepath.Join(extracted.Dir, "python")
	env := runtime.Build(runtime.IsolationConfig{
		Isolate:         isolate,
		ExtractDir:      extracted.Dir,
		ResourcesDir:    extracted.Resources,
		SitePackages:    filepath.Join(extracted.Dir, "python", "site-packages"),
		InterpreterHome: interpreterHome,
		AllowList:       splitNonEmpty(os.Getenv("AURORAVIEW_ISOLATED_PATH"), string(os.PathListSeparator)),
		InheritEnv:      strings.Fields(os.Getenv("AURORAVIEW_INHERIT_ENV")),
	})

	interpreterPath := filepath.Join(interpreterHome, "bin", "python3")
	if target, ok := interpMeta["target"].(string); ok && strings.Contains(target, "windows") {
		interpreterPath = filepath.Join(interpreterHome, "python.exe")
	}

	cmd, err := runtime.SpawnBackend(ctx, interpreterPath, runtime.BackendTarget{
		EntryFile:   entry.EntryFile,
		EntryModule: entry.EntryModule,
	}, extracted.Dir, env)
	if err != nil {
		return err
	}
	cmd.Env = append(cmd.Env, "AURORAVIEW_PACKED=0")
	return cmd.Start()
}

// runPackedWindow opens the WebView over the packed app's own IPC
// stack and navigates to the custom scheme's index endpoint, served
// from the overlay's in-memory asset table (spec §4.2 step 7, §6).
func runPackedWindow(ctx context.Context, reader *overlay.Reader, header map[string]any) error {
	title := "AuroraView"
	url := entrypointURL(header)

	stack, err := newRuntimeStack(title, url, 0)
	if err != nil {
		return err
	}
	defer stack.Close()

	engine := webviewhost.NewPlatformEngine()
	var host *webviewhost.Host
	host = webviewhost.New(engine, func(raw []byte) {
		reply := stack.router.DispatchBytes(raw)
		host.Enqueue(webviewhost.EvalJS(ipcReplyScript(reply)))
	})
	defer host.Destroy()
	stack.events.Install(eventDispatcher{host: host})

	if err := host.CreateEmbedded(ctx, webviewhost.WindowHandle(0), 0, 0, 1024, 768, webviewhost.Config{InitialURL: url}); err != nil {
		return err
	}

	resp := protocolhandler.Handle(reader, "/index.html")
	if resp.Status == 200 {
		host.Enqueue(webviewhost.LoadHTML(string(resp.Body), url))
	}

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			quit, err := host.ProcessEvents()
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

func entrypointURL(header map[string]any) string {
	if ep, ok := header["entry_point"].(string); ok && ep != "" {
		return "auroraview://localhost/" + strings.TrimPrefix(ep, "/")
	}
	return "auroraview://localhost/index.html"
}
