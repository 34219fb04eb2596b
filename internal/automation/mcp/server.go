// Package mcp implements the thin Model Context Protocol surface the
// automation layer exposes: a "tools/list" + "tools/call" JSON-RPC
// server backed by the accessibility-snapshot tool (spec §3's
// Snapshot type, §1 "the MCP tool registry's public RPC surface" —
// named out of the core spec's scope, but still a real domain layer
// built on the core IPC envelope).
package mcp

import (
	"encoding/json"
	"fmt"

	"auroraview/internal/ipc"
)

// Tool describes one callable MCP tool for "tools/list".
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolHandler executes a tool call and returns its JSON-serializable
// result.
type ToolHandler func(args map[string]any) (any, error)

// Server is a minimal MCP JSON-RPC server, reusing internal/ipc's
// envelope verbatim since MCP's wire format genuinely is JSON-RPC 2.0
// (unlike CDP's, which omits the "jsonrpc" field).
type Server struct {
	tools    []Tool
	handlers map[string]ToolHandler
}

// NewServer builds an MCP server pre-registered with the snapshot
// tool backed by provider.
func NewServer(provider SnapshotProvider) *Server {
	s := &Server{handlers: make(map[string]ToolHandler)}
	s.registerSnapshotTool(provider)
	return s
}

func (s *Server) registerSnapshotTool(provider SnapshotProvider) {
	s.tools = append(s.tools, Tool{
		Name:        "browser_snapshot",
		Description: "Capture an accessibility snapshot of the active WebView tab.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tab_id": map[string]any{"type": "string"},
			},
			"required": []string{"tab_id"},
		},
	})
	s.handlers["browser_snapshot"] = func(args map[string]any) (any, error) {
		tabID, _ := args["tab_id"].(string)
		if tabID == "" {
			return nil, fmt.Errorf("tab_id is required")
		}
		return provider.Snapshot(tabID)
	}
}

// Register adds an additional tool, e.g. one the IPC plugin router
// exposes for automation.
func (s *Server) Register(tool Tool, handler ToolHandler) {
	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
}

// Handle dispatches one JSON-RPC request ("tools/list" or
// "tools/call") and returns its response.
func (s *Server) Handle(req *ipc.Request) *ipc.Response {
	switch req.Method {
	case "tools/list":
		return ipc.NewResponse(req.ID, map[string]any{"tools": s.tools})
	case "tools/call":
		return s.handleCall(req)
	default:
		return ipc.NewErrorResponse(req.ID, ipc.MethodNotFound, fmt.Sprintf("unknown MCP method %q", req.Method), nil)
	}
}

func (s *Server) handleCall(req *ipc.Request) *ipc.Response {
	name, _ := req.Params["name"].(string)
	handler, ok := s.handlers[name]
	if !ok {
		return ipc.NewErrorResponse(req.ID, ipc.MethodNotFound, fmt.Sprintf("unknown tool %q", name), nil)
	}

	args, _ := req.Params["arguments"].(map[string]any)
	result, err := handler(args)
	if err != nil {
		return ipc.NewErrorResponse(req.ID, ipc.InternalError, err.Error(), nil)
	}
	return ipc.NewResponse(req.ID, map[string]any{"content": result})
}

// HandleBytes parses, dispatches, and re-serializes a wire-format
// request, mirroring internal/ipc.Router.DispatchBytes.
func (s *Server) HandleBytes(data []byte) []byte {
	req, err := ipc.UnmarshalRequest(data)
	if err != nil {
		resp := ipc.NewErrorResponse(nil, ipc.ParseError, err.Error(), nil)
		out, _ := json.Marshal(resp)
		return out
	}
	out, _ := json.Marshal(s.Handle(req))
	return out
}
