package tabs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auroraview/internal/ipc"
	coretabs "auroraview/internal/tabs"
)

func newRouter() (*ipc.Router, *coretabs.Manager) {
	mgr := coretabs.New()
	r := ipc.NewRouter()
	r.Register(New(mgr).AsIPCPlugin(), ipc.PluginScope{})
	return r, mgr
}

func dispatch(t *testing.T, r *ipc.Router, command string, args map[string]any) *ipc.Response {
	t.Helper()
	req := ipc.NewRequest("1", "plugin:tabs|"+command, args)
	return r.Dispatch(req)
}

func TestCreateActivatesFirstTab(t *testing.T) {
	r, mgr := newRouter()

	resp := dispatch(t, r, "create", map[string]any{"url": "https://a"})
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	id := result["id"].(string)
	require.NotEmpty(t, id)

	assert.Equal(t, coretabs.ID(id), mgr.Active())
}

func TestCloseUnknownTabReturnsNotFound(t *testing.T) {
	r, _ := newRouter()

	resp := dispatch(t, r, "close", map[string]any{"id": "nope"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ipc.MethodNotFound, resp.Error.Code)
	assert.Equal(t, "not_found", resp.Error.Message)
}

func TestCreateGroupAndCloseTabUngroups(t *testing.T) {
	r, mgr := newRouter()

	idsResult := func(args map[string]any) string {
		resp := dispatch(t, r, "create", args)
		require.Nil(t, resp.Error)
		return resp.Result.(map[string]any)["id"].(string)
	}

	t1 := idsResult(map[string]any{"url": "https://a"})
	t2 := idsResult(map[string]any{"url": "https://b"})

	resp := dispatch(t, r, "create_group", map[string]any{"name": "Dev", "tabs": []any{t1, t2}})
	require.Nil(t, resp.Error)
	gid := resp.Result.(map[string]any)["id"].(string)

	g, err := mgr.Group(coretabs.ID(gid))
	require.NoError(t, err)
	assert.Len(t, g.Tabs, 2)

	resp = dispatch(t, r, "close", map[string]any{"id": t1})
	require.Nil(t, resp.Error)

	g, err = mgr.Group(coretabs.ID(gid))
	require.NoError(t, err)
	assert.ElementsMatch(t, []coretabs.ID{coretabs.ID(t2)}, g.Tabs)
}

func TestUpdateTitleIsIdempotentOnState(t *testing.T) {
	r, mgr := newRouter()
	resp := dispatch(t, r, "create", map[string]any{"url": "https://a"})
	id := resp.Result.(map[string]any)["id"].(string)

	for i := 0; i < 2; i++ {
		resp = dispatch(t, r, "update_title", map[string]any{"id": id, "value": "Hello"})
		require.Nil(t, resp.Error)
	}

	tab, err := mgr.Get(coretabs.ID(id))
	require.NoError(t, err)
	assert.Equal(t, "Hello", tab.Title)
}

func TestUnknownCommandIsCommandNotFound(t *testing.T) {
	r, _ := newRouter()
	resp := dispatch(t, r, "frobnicate", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ipc.MethodNotFound, resp.Error.Code)
}
