package ipc

import (
	"encoding/json"
	"sync"
)

// eventMarker is injected into every Plane B event payload so the
// WebView-side bridge can recognize and refuse to re-forward events
// that originated from the host (spec §4.4 "prevent bridge
// re-forwarding").
const eventMarker = "__aurora_from_python"

// Dispatcher delivers a serialized CustomEvent to the WebView's JS
// runtime. The webviewhost package supplies the concrete
// implementation (calling into the engine's EvalJS).
type Dispatcher interface {
	DispatchEvent(name string, detail json.RawMessage) error
}

// EventBus is the Plane B fire-and-forget channel: plugins post named
// events, which get forwarded to whatever Dispatcher is currently
// installed by the WebView host. Posting before a Dispatcher is
// installed is a no-op, matching "the slot is installed by the WebView
// host" (spec §4.4).
type EventBus struct {
	mu         sync.RWMutex
	dispatcher Dispatcher
}

// NewEventBus creates an EventBus with no installed Dispatcher.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Install sets (or replaces) the Dispatcher events are forwarded to.
func (b *EventBus) Install(d Dispatcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dispatcher = d
}

// Post forwards (name, payload) to the installed Dispatcher, adding
// the __aurora_from_python marker. It returns nil silently if no
// Dispatcher is installed.
func (b *EventBus) Post(name string, payload map[string]any) error {
	b.mu.RLock()
	d := b.dispatcher
	b.mu.RUnlock()
	if d == nil {
		return nil
	}

	detail := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		detail[k] = v
	}
	detail[eventMarker] = true

	raw, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	return d.DispatchEvent(name, raw)
}
