//go:build linux

package webviewhost

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/diamondburned/gotk4/pkg/webkit/v6"

	"auroraview/internal/aerrors"
)

// gtkEngine drives a WebKitGTK WebView (grounded on the workspace
// manager's webview-in-container pattern: GTK widgets are never
// reparented after realize, and all WebKit calls happen on the GLib
// main thread). CreateEmbedded keeps the window from
// resolveForeignWindow as parent but does not add the view to it as
// a child.
type gtkEngine struct {
	mu      sync.Mutex
	handle  WindowHandle
	parent  *gtk.Window
	view    *webkit.WebView
	hook    MessageHook
	quit    bool
	destroy bool
}

func newPlatformEngine() Engine { return &gtkEngine{} }

func (e *gtkEngine) CreateEmbedded(ctx context.Context, handle WindowHandle, x, y, w, h int, cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	win, err := resolveForeignWindow(handle)
	if err != nil {
		return err
	}
	e.handle = handle
	e.parent = win

	view := webkit.NewWebView()
	view.SetSizeRequest(w, h)
	if cfg.UserAgent != "" {
		settings := view.Settings()
		settings.SetUserAgent(cfg.UserAgent)
	}

	manager := view.UserContentManager()
	manager.RegisterScriptMessageHandler("auroraview", "")
	manager.ConnectScriptMessageReceived("auroraview", func(result *webkit.JavascriptResult) {
		e.mu.Lock()
		hook := e.hook
		e.mu.Unlock()
		if hook == nil {
			return
		}
		val := result.JSValue().ToString()
		hook([]byte(val))
	})

	e.view = view

	if cfg.InitialURL != "" {
		view.LoadURI(cfg.InitialURL)
	}
	return nil
}

func (e *gtkEngine) Navigate(url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		return aerrors.New(aerrors.StateViolation, "webviewhost.navigate", "webview not created")
	}
	e.view.LoadURI(url)
	return nil
}

func (e *gtkEngine) LoadHTML(html, baseURL string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		return aerrors.New(aerrors.StateViolation, "webviewhost.load_html", "webview not created")
	}
	e.view.LoadHTML(html, baseURL)
	return nil
}

func (e *gtkEngine) Eval(script string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		return aerrors.New(aerrors.StateViolation, "webviewhost.eval", "webview not created")
	}
	e.view.EvaluateJavaScript(script, -1, "", "", nil, nil)
	return nil
}

func (e *gtkEngine) EmitEvent(name, payloadJSON string) error {
	event := struct {
		Name    string `json:"name"`
		Payload string `json:"payload"`
		Marker  bool   `json:"__aurora_from_python"`
	}{Name: name, Payload: payloadJSON, Marker: true}

	data, err := json.Marshal(event)
	if err != nil {
		return aerrors.Wrap(aerrors.InvalidArgument, "webviewhost.emit_event", err)
	}
	script := fmt.Sprintf("window.dispatchEvent(new CustomEvent(%q, {detail: %s}))", name, data)
	return e.Eval(script)
}

func (e *gtkEngine) SetMessageHook(hook MessageHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hook = hook
}

func (e *gtkEngine) IsWindowValid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parent != nil && !e.destroy
}

func (e *gtkEngine) PumpNative(maxIterations int) (bool, error) {
	ctx := glib.MainContextDefault()
	for i := 0; i < maxIterations; i++ {
		if !ctx.Pending() {
			break
		}
		ctx.Iteration(false)
	}
	e.mu.Lock()
	quit := e.quit
	e.mu.Unlock()
	return quit, nil
}

// resolveForeignWindow returns a new top-level gtk.Window. handle is
// not used: a foreign X11/Wayland window is never wrapped, so every
// handle, zero or not, gets a fresh window.
func resolveForeignWindow(handle WindowHandle) (*gtk.Window, error) {
	return gtk.NewWindow(), nil
}

func (e *gtkEngine) Destroy() {
	e.mu.Lock()
	view := e.view
	e.destroy = true
	e.mu.Unlock()

	if view == nil {
		return
	}
	view.SetVisible(false)
	ctx := glib.MainContextDefault()
	for i := 0; i < 16 && ctx.Pending(); i++ {
		ctx.Iteration(false)
	}
}
