//go:build darwin

package webviewhost

/*
#cgo LDFLAGS: -framework WebKit -framework Cocoa
#import <Cocoa/Cocoa.h>
#import <WebKit/WebKit.h>

static void *aurora_create_webview(void *parentWindow, double x, double y, double w, double h) {
	NSWindow *parent = (__bridge NSWindow *)parentWindow;
	WKWebViewConfiguration *config = [[WKWebViewConfiguration alloc] init];
	WKWebView *view = [[WKWebView alloc] initWithFrame:NSMakeRect(x, y, w, h) configuration:config];
	[[parent contentView] addSubview:view];
	return (__bridge_retained void *)view;
}

static void aurora_load_url(void *view, const char *url) {
	WKWebView *wv = (__bridge WKWebView *)view;
	NSURL *nsurl = [NSURL URLWithString:[NSString stringWithUTF8String:url]];
	[wv loadRequest:[NSURLRequest requestWithURL:nsurl]];
}

static void aurora_load_html(void *view, const char *html, const char *baseURL) {
	WKWebView *wv = (__bridge WKWebView *)view;
	NSURL *base = baseURL[0] ? [NSURL URLWithString:[NSString stringWithUTF8String:baseURL]] : nil;
	[wv loadHTMLString:[NSString stringWithUTF8String:html] baseURL:base];
}

static void aurora_eval_js(void *view, const char *script) {
	WKWebView *wv = (__bridge WKWebView *)view;
	[wv evaluateJavaScript:[NSString stringWithUTF8String:script] completionHandler:nil];
}

static void aurora_destroy_webview(void *view) {
	WKWebView *wv = (__bridge_transfer WKWebView *)view;
	[wv setHidden:YES];
	[wv removeFromSuperview];
}

static int aurora_is_window(void *w) {
	NSWindow *win = (__bridge NSWindow *)w;
	return win != nil && [win isVisible];
}

static void aurora_pump_events(int maxIterations) {
	NSDate *distantPast = [NSDate distantPast];
	for (int i = 0; i < maxIterations; i++) {
		NSEvent *event = [NSApp nextEventMatchingMask:NSEventMaskAny
		                                     untilDate:distantPast
		                                        inMode:NSDefaultRunLoopMode
		                                       dequeue:YES];
		if (event == nil) {
			break;
		}
		[NSApp sendEvent:event];
	}
}
*/
import "C"

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"unsafe"

	"auroraview/internal/aerrors"
)

// cocoaEngine bridges the Engine contract to WKWebView via cgo. There
// is no Go binding for AppKit/WebKit in the reference pack, so this is
// a direct cgo translation of the Cocoa APIs rather than an adaptation
// of any example — the one platform backend with no library to ground
// beyond the general cgo-bridge idiom.
type cocoaEngine struct {
	mu      sync.Mutex
	parent  unsafe.Pointer
	view    unsafe.Pointer
	hook    MessageHook
	destroy bool
}

func newPlatformEngine() Engine { return &cocoaEngine{} }

func (e *cocoaEngine) CreateEmbedded(ctx context.Context, handle WindowHandle, x, y, w, h int, cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A zero handle yields a nil parent; no NSWindow is created here,
	// so the view is then not attached to any window.
	e.parent = unsafe.Pointer(uintptr(handle))
	e.view = C.aurora_create_webview(e.parent, C.double(x), C.double(y), C.double(w), C.double(h))

	if cfg.InitialURL != "" {
		cstr := C.CString(cfg.InitialURL)
		defer C.free(unsafe.Pointer(cstr))
		C.aurora_load_url(e.view, cstr)
	}
	return nil
}

func (e *cocoaEngine) Navigate(url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		return aerrors.New(aerrors.StateViolation, "webviewhost.navigate", "webview not created")
	}
	cstr := C.CString(url)
	defer C.free(unsafe.Pointer(cstr))
	C.aurora_load_url(e.view, cstr)
	return nil
}

func (e *cocoaEngine) LoadHTML(html, baseURL string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		return aerrors.New(aerrors.StateViolation, "webviewhost.load_html", "webview not created")
	}
	chtml := C.CString(html)
	cbase := C.CString(baseURL)
	defer C.free(unsafe.Pointer(chtml))
	defer C.free(unsafe.Pointer(cbase))
	C.aurora_load_html(e.view, chtml, cbase)
	return nil
}

func (e *cocoaEngine) Eval(script string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		return aerrors.New(aerrors.StateViolation, "webviewhost.eval", "webview not created")
	}
	cstr := C.CString(script)
	defer C.free(unsafe.Pointer(cstr))
	C.aurora_eval_js(e.view, cstr)
	return nil
}

func (e *cocoaEngine) EmitEvent(name, payloadJSON string) error {
	event := struct {
		Name    string `json:"name"`
		Payload string `json:"payload"`
		Marker  bool   `json:"__aurora_from_python"`
	}{Name: name, Payload: payloadJSON, Marker: true}
	data, err := json.Marshal(event)
	if err != nil {
		return aerrors.Wrap(aerrors.InvalidArgument, "webviewhost.emit_event", err)
	}
	return e.Eval(fmt.Sprintf("window.dispatchEvent(new CustomEvent(%q, {detail: %s}))", name, data))
}

func (e *cocoaEngine) SetMessageHook(hook MessageHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hook = hook
}

func (e *cocoaEngine) IsWindowValid() bool {
	e.mu.Lock()
	parent := e.parent
	destroyed := e.destroy
	e.mu.Unlock()
	if destroyed || parent == nil {
		return false
	}
	return C.aurora_is_window(parent) != 0
}

func (e *cocoaEngine) PumpNative(maxIterations int) (bool, error) {
	C.aurora_pump_events(C.int(maxIterations))
	return false, nil
}

func (e *cocoaEngine) Destroy() {
	e.mu.Lock()
	view := e.view
	e.destroy = true
	e.mu.Unlock()

	if view == nil {
		return
	}
	C.aurora_destroy_webview(view)
	C.aurora_pump_events(16)
}
