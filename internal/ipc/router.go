package ipc

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"auroraview/internal/alog"
)

// DispatchMetrics records Plane A dispatch observations. Implementations
// must be nil-safe to call through; a Router with no Metrics set simply
// skips recording.
type DispatchMetrics interface {
	ObserveDispatch(plugin, command string, ok bool, seconds float64)
}

// Result is what a plugin handler returns on success; it is placed
// verbatim into the response's "data" field.
type Result any

// HandlerFunc is the contract every plugin handler implements: a pure
// function of (command, args, scope) -> (Result, error). Errors should
// be produced with NewCommandNotFound / NewInvalidArgs / NewScopeDenied
// so the router can classify them on the wire.
type HandlerFunc func(command string, args map[string]any, scope PluginScope) (Result, error)

// Plugin is a named, scope-aware command handler registered with a
// Router under "plugin:<name>".
type Plugin struct {
	Name     string
	Commands map[string]struct{} // declared allow-list; empty means "ask Handle"
	Handle   HandlerFunc
}

// NewCommandNotFound builds the router-recognized "unknown command" error.
func NewCommandNotFound(command string) error {
	return &RPCError{Code: MethodNotFound, Message: "command_not_found", Data: command}
}

// NewInvalidArgs builds the router-recognized "bad args" error.
func NewInvalidArgs(reason string) error {
	return &RPCError{Code: InvalidParams, Message: "invalid_args", Data: reason}
}

// NewScopeDeniedErr builds the router-recognized scope-violation error.
func NewScopeDeniedErr(command string) error {
	return &RPCError{Code: ScopeDenied, Message: "shell_error", Data: fmt.Sprintf("scope denies command %q", command)}
}

// Router is the Plane A request/response dispatcher: a mapping of
// plugin name to handler, per spec §4.4.
type Router struct {
	mu      sync.RWMutex
	plugins map[string]*Plugin
	scopes  map[string]PluginScope
	log     *alog.Logger

	// Metrics, when set, is recorded on every Dispatch (spec §9
	// "ambient" concerns are carried regardless of scope exclusions).
	Metrics DispatchMetrics
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{
		plugins: make(map[string]*Plugin),
		scopes:  make(map[string]PluginScope),
		log:     alog.IPC,
	}
}

// Register installs a plugin under its own name with the given scope.
func (r *Router) Register(p *Plugin, scope PluginScope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.Name] = p
	r.scopes[p.Name] = scope
}

// Dispatch parses a Plane A wire request of the form
// method = "plugin:<name>|<command>" and returns the Response to send
// back to the WebView side. It never panics or returns a transport
// error: every failure mode is encoded as a Response.
func (r *Router) Dispatch(req *Request) *Response {
	start := time.Now()
	pluginName, command, ok := splitMethod(req.Method)
	if !ok {
		return NewErrorResponse(req.ID, InvalidRequest, "malformed method", req.Method)
	}

	r.mu.RLock()
	plugin, found := r.plugins[pluginName]
	scope := r.scopes[pluginName]
	r.mu.RUnlock()
	if !found {
		r.record(pluginName, command, false, start)
		return NewErrorResponse(req.ID, MethodNotFound, "plugin_not_found", pluginName)
	}

	if len(plugin.Commands) > 0 {
		if _, allowed := plugin.Commands[command]; !allowed {
			r.record(pluginName, command, false, start)
			return NewErrorResponse(req.ID, MethodNotFound, "command_not_found", command)
		}
	}
	if !scope.Allows(command) {
		r.log.Warn("plugin %s: scope denied command %s", pluginName, command)
		r.record(pluginName, command, false, start)
		return NewErrorResponse(req.ID, ScopeDenied, "shell_error", fmt.Sprintf("scope denies command %q", command))
	}

	data, err := plugin.Handle(command, req.Params, scope)
	if err != nil {
		r.record(pluginName, command, false, start)
		if rpcErr, ok := err.(*RPCError); ok {
			return &Response{JSONRPC: JSONRPCVersion, ID: req.ID, Error: rpcErr}
		}
		return NewErrorResponse(req.ID, InternalError, "internal_error", err.Error())
	}
	r.record(pluginName, command, true, start)
	return NewResponse(req.ID, data)
}

func (r *Router) record(plugin, command string, ok bool, start time.Time) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.ObserveDispatch(plugin, command, ok, time.Since(start).Seconds())
}

// DispatchBytes is the wire-level entry point: unmarshal, dispatch,
// marshal. Malformed JSON becomes a ParseError response with a null id.
func (r *Router) DispatchBytes(data []byte) []byte {
	req, err := UnmarshalRequest(data)
	if err != nil {
		resp := NewErrorResponse(nil, ParseError, "invalid JSON", err.Error())
		out, _ := Marshal(resp)
		return out
	}
	resp := r.Dispatch(req)
	out, marshalErr := Marshal(resp)
	if marshalErr != nil {
		fallback := NewErrorResponse(req.ID, InternalError, "failed to marshal response", marshalErr.Error())
		out, _ = Marshal(fallback)
	}
	return out
}

func splitMethod(method string) (plugin, command string, ok bool) {
	const prefix = "plugin:"
	if len(method) <= len(prefix) || method[:len(prefix)] != prefix {
		return "", "", false
	}
	rest := method[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '|' {
			return rest[:i], rest[i+1:], true
		}
	}
	return "", "", false
}

// DecodeArgs is a convenience for plugin handlers that want their
// params re-decoded into a typed struct.
func DecodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
