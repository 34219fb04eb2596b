package webviewhost

import (
	"context"

	"auroraview/internal/aerrors"
	"auroraview/internal/alog"
)

// defaultPumpIterationsPerTick bounds native-message dispatch per
// process_events call so a busy native queue cannot starve the host
// (spec §4.6 "Detail floor").
const defaultPumpIterationsPerTick = 64

// Host owns one embedded WebView's Engine and the queue producers use
// to reach it from any thread (spec §4.6).
type Host struct {
	engine Engine
	queue  *MessageQueue
	router MessageHook // forwards page->host messages into the IPC router
	log    *alog.Logger

	maxPumpIterations int
}

// New builds a Host around engine, installing router as the engine's
// page->host message hook.
func New(engine Engine, router MessageHook) *Host {
	h := &Host{
		engine:            engine,
		queue:             NewMessageQueue(256),
		router:            router,
		log:               alog.Runtime,
		maxPumpIterations: defaultPumpIterationsPerTick,
	}
	engine.SetMessageHook(router)
	return h
}

// CreateEmbedded creates the child WebView (spec §4.6 "Contract for
// create_embedded").
func (h *Host) CreateEmbedded(ctx context.Context, handle WindowHandle, x, y, width, height int, cfg Config) error {
	if err := h.engine.CreateEmbedded(ctx, handle, x, y, width, height, cfg); err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "webviewhost.create_embedded", err)
	}
	return nil
}

// Enqueue pushes cmd onto the message queue; safe from any thread
// (spec §4.7).
func (h *Host) Enqueue(cmd Command) {
	h.queue.Push(cmd)
}

// ProcessEvents runs one co-scheduling tick (spec §4.6 steps 1-4). It
// is meant to be called from the host's own idle timer, always on the
// WebView-owning thread.
func (h *Host) ProcessEvents() (shouldQuit bool, err error) {
	if !h.engine.IsWindowValid() {
		return true, nil
	}

	quit, err := h.engine.PumpNative(h.maxPumpIterations)
	if err != nil {
		return false, aerrors.Wrap(aerrors.IoFailure, "webviewhost.process_events", err)
	}
	if quit {
		return true, nil
	}

	for _, cmd := range h.queue.Drain() {
		if execErr := h.execute(cmd); execErr != nil {
			h.log.Warn("webviewhost: command %d failed: %v", cmd.Kind, execErr)
		}
	}

	return false, nil
}

func (h *Host) execute(cmd Command) error {
	switch cmd.Kind {
	case KindEvalJS:
		return h.engine.Eval(cmd.Script)
	case KindEmitEvent:
		return h.engine.EmitEvent(cmd.EventName, cmd.EventJSON)
	case KindLoadURL:
		return h.engine.Navigate(cmd.URL)
	case KindLoadHTML:
		return h.engine.LoadHTML(cmd.HTML, cmd.BaseURL)
	default:
		return aerrors.New(aerrors.InvalidArgument, "webviewhost.execute", "unknown command kind")
	}
}

// Destroy tears down the underlying Engine (spec §4.6 "dropping it").
func (h *Host) Destroy() {
	h.engine.Destroy()
}
