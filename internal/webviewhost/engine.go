// Package webviewhost implements the Embedded WebView Host and its
// Message Queue (spec §4.6, §4.7): a platform-abstracted WebView
// engine, a co-scheduled event pump, and the bounded command queue
// that lets any thread drive the WebView-owning thread without ever
// blocking.
package webviewhost

import "context"

// WindowHandle is an opaque, platform-specific top-level window
// handle (HWND on Windows, GtkWindow* on Linux, NSWindow* on darwin).
type WindowHandle uintptr

// Config configures a new embedded WebView.
type Config struct {
	InitialURL string
	UserAgent  string
	DevTools   bool
}

// MessageHook is invoked for every JSON message the page posts to its
// host; it forwards into the IPC router (spec §4.6 "install a
// message-received hook").
type MessageHook func(raw []byte)

// Engine is the platform-specific WebView backend contract. Each
// build-tagged engine_<os>.go file provides one implementation;
// Host drives it through this interface only, never touching native
// handles directly (spec §4.6).
type Engine interface {
	// CreateEmbedded creates a child WebView parented to handle with
	// the given initial bounds, set before first paint. The handle is
	// passed through as given: the gtk engine ignores it and always
	// creates its own top-level window, while the win32 and cocoa
	// engines create no window, so a zero handle leaves them without a
	// parent window.
	CreateEmbedded(ctx context.Context, handle WindowHandle, x, y, w, h int, cfg Config) error

	Navigate(url string) error
	LoadHTML(html, baseURL string) error
	Eval(script string) error
	EmitEvent(name, json string) error

	// SetMessageHook installs the page->host message callback.
	SetMessageHook(hook MessageHook)

	// IsWindowValid probes the parent handle with the OS's IsWindow
	// equivalent (spec §4.6 step 1).
	IsWindowValid() bool

	// PumpNative non-blockingly peeks and dispatches pending native
	// messages targeted at the WebView's handle, up to maxIterations,
	// and reports whether a quit signal was observed (spec §4.6 step 2
	// and the "Detail floor" bounding requirement).
	PumpNative(maxIterations int) (quit bool, err error)

	// Destroy sets the WebView invisible, invokes the OS-specific
	// destroy, and pumps remaining native messages for a brief window
	// to let native cleanup complete (spec §4.6 "dropping it...").
	Destroy()
}

// NewPlatformEngine returns the Engine implementation for the host OS
// (see engine_linux.go, engine_windows.go, engine_darwin.go).
func NewPlatformEngine() Engine { return newPlatformEngine() }
