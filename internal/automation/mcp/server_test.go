package mcp

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auroraview/internal/ipc"
)

type fakeProvider struct {
	snapshots map[string]Snapshot
}

func (f *fakeProvider) Snapshot(tabID string) (Snapshot, error) {
	s, ok := f.snapshots[tabID]
	if !ok {
		return Snapshot{}, fmt.Errorf("no such tab %q", tabID)
	}
	return s, nil
}

func TestToolsListIncludesSnapshotTool(t *testing.T) {
	s := NewServer(&fakeProvider{})
	resp := s.Handle(ipc.NewRequest(int64(1), "tools/list", nil))

	require.False(t, resp.IsError())
	result := resp.Result.(map[string]any)
	tools := result["tools"].([]Tool)
	require.Len(t, tools, 1)
	assert.Equal(t, "browser_snapshot", tools[0].Name)
}

func TestToolsCallInvokesSnapshotProvider(t *testing.T) {
	provider := &fakeProvider{snapshots: map[string]Snapshot{
		"tab-1": {Title: "Example", URL: "https://example.com"},
	}}
	s := NewServer(provider)

	req := ipc.NewRequest(int64(2), "tools/call", map[string]any{
		"name":      "browser_snapshot",
		"arguments": map[string]any{"tab_id": "tab-1"},
	})
	resp := s.Handle(req)

	require.False(t, resp.IsError())
	result := resp.Result.(map[string]any)
	snap := result["content"].(Snapshot)
	assert.Equal(t, "Example", snap.Title)
}

func TestToolsCallMissingTabIDFails(t *testing.T) {
	s := NewServer(&fakeProvider{})
	req := ipc.NewRequest(int64(3), "tools/call", map[string]any{
		"name":      "browser_snapshot",
		"arguments": map[string]any{},
	})
	resp := s.Handle(req)
	assert.True(t, resp.IsError())
}

func TestToolsCallUnknownToolReturnsMethodNotFound(t *testing.T) {
	s := NewServer(&fakeProvider{})
	req := ipc.NewRequest(int64(4), "tools/call", map[string]any{"name": "does_not_exist"})
	resp := s.Handle(req)
	require.True(t, resp.IsError())
	assert.Equal(t, ipc.MethodNotFound, resp.Error.Code)
}

func TestHandleBytesRoundTrips(t *testing.T) {
	s := NewServer(&fakeProvider{})
	req := ipc.NewRequest(int64(5), "tools/list", nil)
	data, err := json.Marshal(req)
	require.NoError(t, err)

	out := s.HandleBytes(data)

	var resp ipc.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.False(t, resp.IsError())
}

func TestHandleUnknownMethod(t *testing.T) {
	s := NewServer(&fakeProvider{})
	resp := s.Handle(ipc.NewRequest(int64(6), "unknown/method", nil))
	assert.True(t, resp.IsError())
	assert.Equal(t, ipc.MethodNotFound, resp.Error.Code)
}
