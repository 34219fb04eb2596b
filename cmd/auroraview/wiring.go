package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auroraview/internal/apppaths"
	"auroraview/internal/automation/httpapi"
	"auroraview/internal/cleanup"
	"auroraview/internal/ipc"
	supervisorplugin "auroraview/internal/ipc/plugins/supervisor"
	tabsplugin "auroraview/internal/ipc/plugins/tabs"
	"auroraview/internal/registry"
	"auroraview/internal/tabs"
	"auroraview/internal/telemetry"
	"auroraview/internal/webviewhost"
)

// defaultKillAllDrain bounds kill_all's streaming-drain wait (spec §5
// "kill_all drain waits at most 2 s").
const defaultKillAllDrain = 2 * time.Second

// runtimeStack is the assembled set of long-lived subsystems a live
// AuroraView window depends on: the IPC Router (with the Process
// Supervisor and Tab Manager plugins registered), the Plane B event
// bus, the Instance Registry record for this window, and the
// once-per-process Cleanup Engine (spec §2 standalone control flow:
// "Runtime Extractor -> WebView Host + IPC Router + Process
// Supervisor").
type runtimeStack struct {
	router     *ipc.Router
	events     *ipc.EventBus
	supervisor *supervisorplugin.Plugin
	tabs       *tabs.Manager
	reg        *registry.Registry
	windowID   string
	bridge     *httpapi.Bridge
	metrics    *telemetry.Metrics
}

// fanoutEmitter posts every Plane B event to both the installed
// WebView Dispatcher (via the EventBus) and the AG-UI SSE Bridge, so
// automation clients observe the same supervisor stdio/lifecycle
// events the embedded page does (spec §9 "async vs threaded mix" —
// the automation surfaces are a second, cooperative consumer of the
// same event stream, never a second owner of it).
type fanoutEmitter struct {
	events *ipc.EventBus
	bridge *httpapi.Bridge
}

func (f fanoutEmitter) Post(name string, payload map[string]any) error {
	if f.bridge != nil {
		f.bridge.Publish(httpapi.Frame{Type: name, Data: payload})
	}
	return f.events.Post(name, payload)
}

// newRuntimeStack wires the host-side plugins behind a single Router
// and runs the Cleanup Engine's once-per-process stale-directory scan
// before registering this window's instance record (spec §4.8, §4.9).
// Metrics are recorded unconditionally (an ambient concern, spec §9);
// the AG-UI bridge is built unconditionally too (cheap: an empty
// subscriber set costs nothing until something dials /agui/events) but
// is only served over HTTP when the caller enables debug automation.
func newRuntimeStack(title, url string, cdpPort int) (*runtimeStack, error) {
	dataRoot, err := apppaths.WebViewDataRoot()
	if err == nil {
		cleanup.New(dataRoot).Run()
	}

	metrics, err := telemetry.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	router := ipc.NewRouter()
	router.Metrics = metrics
	events := ipc.NewEventBus()
	bridge := httpapi.NewBridge()

	sup := supervisorplugin.New(fanoutEmitter{events: events, bridge: bridge})
	sup.Metrics = metrics
	router.Register(sup.AsIPCPlugin(), ipc.NewScope("spawn_ipc", "kill", "kill_all", "send", "list"))

	tm := tabs.New()
	tm.Observe(tabs.ObserverFunc(func(e tabs.Event) {
		bridge.Publish(httpapi.Frame{Type: "tab:" + string(e.Kind), Data: e})
	}))
	router.Register(tabsplugin.New(tm).AsIPCPlugin(), ipc.PluginScope{})

	windowID := uuid.NewString()

	var reg *registry.Registry
	if instancesDir, dirErr := apppaths.InstancesDir(); dirErr == nil {
		if r, regErr := registry.New(instancesDir); regErr == nil {
			reg = r
			reg.Metrics = metrics
			_ = reg.Register(registry.Instance{
				WindowID: windowID,
				Title:    title,
				CDPPort:  cdpPort,
				AppName:  "AuroraView",
				URL:      url,
			})
		}
	}

	return &runtimeStack{
		router:     router,
		events:     events,
		supervisor: sup,
		tabs:       tm,
		reg:        reg,
		windowID:   windowID,
		bridge:     bridge,
		metrics:    metrics,
	}, nil
}

// Close unregisters the instance record, kills any remaining
// supervised children (spec §4.5 "kill_all", §4.8 "Safety"), and flushes
// the metrics provider.
func (s *runtimeStack) Close() {
	s.supervisor.KillAll(defaultKillAllDrain)
	if s.reg != nil {
		_ = s.reg.Unregister(s.windowID)
	}
	_ = s.metrics.Shutdown(context.Background())
}

// eventDispatcher adapts a webviewhost.Host's Enqueue into the
// ipc.Dispatcher contract the EventBus forwards Plane B events
// through (spec §4.4 "installed by the WebView host").
type eventDispatcher struct {
	host *webviewhost.Host
}

func (d eventDispatcher) DispatchEvent(name string, detail json.RawMessage) error {
	d.host.Enqueue(webviewhost.EmitEvent(name, string(detail)))
	return nil
}

// ipcReplyScript formats a Plane A response so it can be delivered
// back into the page over the same bridge the request arrived on
// (spec §4.4 "replied with {id, ok, data|error}").
func ipcReplyScript(resp []byte) string {
	return fmt.Sprintf("window.__auroraviewIpcReply && window.__auroraviewIpcReply(%s);", resp)
}
