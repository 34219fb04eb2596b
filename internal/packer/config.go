// Package packer implements the Packer Pipeline (spec §4.2): the
// Builder stage sequence that turns a frontend tree, an optional
// scripting backend, and a set of extensions into a single packed
// executable with an appended overlay.
package packer

import "time"

// BuildMode selects whether the scripting-backend collection stage runs.
type BuildMode string

const (
	ModeFrontendOnly BuildMode = "frontend-only"
	ModeFullStack    BuildMode = "full-stack"
)

// ScriptingBackendConfig configures stage 4 (interpreter + source +
// site-packages collection).
type ScriptingBackendConfig struct {
	Target        string   // interpreter triple, e.g. "cpython-3.11-x86_64-linux"
	IncludePaths  []string // source roots walked into python/
	ExcludeGlobs  []string
	Packages      []string // pip-style requirement specifiers
	EntryFile     string   // "entry_file.py" form
	EntryModule   string   // "module:function" form, mutually exclusive with EntryFile
	CacheDir      string   // build-shared interpreter archive cache
	DownloadURL   string   // source of the prebuilt interpreter archive
}

// ExtensionRef is one configured extension: either a store ID (fetched
// from the web-store) or a local path (copied directly).
type ExtensionRef struct {
	StoreID   string
	LocalPath string
}

// WindowsResources configures stage 8 (PE resource editing).
type WindowsResources struct {
	Enabled        bool
	IconPath       string
	ProductVersion string
	FileVersion    string
	Description    string
	Copyright      string
	GUISubsystem   bool
}

// Hooks are user-extensible lifecycle callbacks, run at the named
// points in the pipeline (spec §4.2 "Hook: before-pack" etc.).
type Hooks struct {
	BeforePack   func(*BuildContext) error
	BeforeOverlay func(*BuildContext) error
	AfterPack    func(*BuildContext) error
	OnError      func(*BuildContext, error)
}

// Config is the full pack configuration for one Builder invocation.
type Config struct {
	FrontendPath     string
	EntryPoint       string // e.g. "index.html" or a URL
	OutputPath       string
	Mode             BuildMode
	ScriptingBackend ScriptingBackendConfig
	Extensions       []ExtensionRef
	Windows          WindowsResources
	Hooks            Hooks
	OfflineMode      bool
	HookTimeout      time.Duration // default 5 minutes, spec §5
}

// DefaultHookTimeout matches spec §5's "configurable timeout, default 5 min".
const DefaultHookTimeout = 5 * time.Minute
