// Package tabs adapts the Tab Manager (internal/tabs) onto the IPC
// Router as the "tabs" plugin, the bridge the standalone browser
// shell's WebView JS side drives to create, close, and reorder tabs
// (spec §4.1, §4.4). It is a thin command-dispatch wrapper; all state
// lives in the wrapped *tabs.Manager.
package tabs

import (
	"auroraview/internal/aerrors"
	"auroraview/internal/ipc"
	"auroraview/internal/tabs"
)

// Plugin adapts a *tabs.Manager onto the router's plugin contract.
type Plugin struct {
	mgr *tabs.Manager
}

// New wraps mgr as an IPC plugin.
func New(mgr *tabs.Manager) *Plugin {
	return &Plugin{mgr: mgr}
}

var commands = map[string]struct{}{
	"create": {}, "close": {}, "activate": {}, "duplicate": {}, "reorder": {},
	"update_title": {}, "update_url": {}, "update_loading": {}, "update_history": {},
	"update_favicon": {}, "set_pinned": {}, "set_muted": {},
	"create_group": {}, "add_to_group": {}, "remove_from_group": {},
	"delete_group": {}, "set_group_collapsed": {},
	"list": {}, "active": {},
}

// AsIPCPlugin adapts Plugin to the generic ipc.Plugin/HandlerFunc shape.
func (p *Plugin) AsIPCPlugin() *ipc.Plugin {
	return &ipc.Plugin{Name: "tabs", Commands: commands, Handle: p.Handle}
}

// Handle dispatches a single tabs command; a pure function of
// (command, args, scope) per the router contract (spec §4.4).
func (p *Plugin) Handle(command string, args map[string]any, scope ipc.PluginScope) (ipc.Result, error) {
	switch command {
	case "create":
		var a struct{ URL string `json:"url"` }
		if err := ipc.DecodeArgs(args, &a); err != nil {
			return nil, ipc.NewInvalidArgs(err.Error())
		}
		return map[string]any{"id": string(p.mgr.Create(a.URL))}, nil

	case "close":
		id, err := requireID(args)
		if err != nil {
			return nil, err
		}
		return nil, wrapErr(p.mgr.Close(id))

	case "activate":
		id, err := requireID(args)
		if err != nil {
			return nil, err
		}
		return nil, wrapErr(p.mgr.Activate(id))

	case "duplicate":
		id, err := requireID(args)
		if err != nil {
			return nil, err
		}
		newID, mgrErr := p.mgr.Duplicate(id)
		if mgrErr != nil {
			return nil, wrapErr(mgrErr)
		}
		return map[string]any{"id": string(newID)}, nil

	case "reorder":
		var a struct {
			ID       string `json:"id"`
			NewIndex int    `json:"new_index"`
		}
		if err := ipc.DecodeArgs(args, &a); err != nil {
			return nil, ipc.NewInvalidArgs(err.Error())
		}
		return nil, wrapErr(p.mgr.Reorder(tabs.ID(a.ID), a.NewIndex))

	case "update_title":
		return p.updateString(args, p.mgr.UpdateTitle)
	case "update_url":
		return p.updateString(args, p.mgr.UpdateURL)
	case "update_favicon":
		return p.updateString(args, func(id tabs.ID, v string) error { return p.mgr.UpdateFavicon(id, v) })

	case "update_loading":
		return p.updateBool(args, "loading", p.mgr.UpdateLoading)
	case "set_pinned":
		return p.updateBool(args, "pinned", p.mgr.SetPinned)
	case "set_muted":
		return p.updateBool(args, "muted", p.mgr.SetMuted)

	case "update_history":
		var a struct {
			ID         string `json:"id"`
			CanBack    bool   `json:"can_back"`
			CanForward bool   `json:"can_forward"`
		}
		if err := ipc.DecodeArgs(args, &a); err != nil {
			return nil, ipc.NewInvalidArgs(err.Error())
		}
		return nil, wrapErr(p.mgr.UpdateHistory(tabs.ID(a.ID), a.CanBack, a.CanForward))

	case "create_group":
		var a struct {
			Name string   `json:"name"`
			Tabs []string `json:"tabs"`
		}
		if err := ipc.DecodeArgs(args, &a); err != nil {
			return nil, ipc.NewInvalidArgs(err.Error())
		}
		ids := make([]tabs.ID, len(a.Tabs))
		for i, t := range a.Tabs {
			ids[i] = tabs.ID(t)
		}
		gid, err := p.mgr.CreateGroup(a.Name, ids)
		if err != nil {
			return nil, wrapErr(err)
		}
		return map[string]any{"id": string(gid)}, nil

	case "add_to_group":
		var a struct{ TabID, GroupID string }
		if err := ipc.DecodeArgs(args, &a); err != nil {
			return nil, ipc.NewInvalidArgs(err.Error())
		}
		return nil, wrapErr(p.mgr.AddToGroup(tabs.ID(a.TabID), tabs.ID(a.GroupID)))

	case "remove_from_group":
		id, err := requireID(args)
		if err != nil {
			return nil, err
		}
		return nil, wrapErr(p.mgr.RemoveFromGroup(id))

	case "delete_group":
		gid, err := requireGroupID(args)
		if err != nil {
			return nil, err
		}
		return nil, wrapErr(p.mgr.DeleteGroup(gid))

	case "set_group_collapsed":
		var a struct {
			GroupID   string `json:"group_id"`
			Collapsed bool   `json:"collapsed"`
		}
		if err := ipc.DecodeArgs(args, &a); err != nil {
			return nil, ipc.NewInvalidArgs(err.Error())
		}
		return nil, wrapErr(p.mgr.SetGroupCollapsed(tabs.ID(a.GroupID), a.Collapsed))

	case "list":
		return p.mgr.All(), nil

	case "active":
		return map[string]any{"id": string(p.mgr.Active())}, nil

	default:
		return nil, ipc.NewCommandNotFound(command)
	}
}

func (p *Plugin) updateString(args map[string]any, fn func(tabs.ID, string) error) (ipc.Result, error) {
	var a struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	}
	if err := ipc.DecodeArgs(args, &a); err != nil {
		return nil, ipc.NewInvalidArgs(err.Error())
	}
	return nil, wrapErr(fn(tabs.ID(a.ID), a.Value))
}

func (p *Plugin) updateBool(args map[string]any, key string, fn func(tabs.ID, bool) error) (ipc.Result, error) {
	var a map[string]any
	if err := ipc.DecodeArgs(args, &a); err != nil {
		return nil, ipc.NewInvalidArgs(err.Error())
	}
	id, _ := a["id"].(string)
	if id == "" {
		return nil, ipc.NewInvalidArgs("missing id")
	}
	v, _ := a[key].(bool)
	return nil, wrapErr(fn(tabs.ID(id), v))
}

func requireID(args map[string]any) (tabs.ID, error) {
	id, ok := args["id"].(string)
	if !ok || id == "" {
		return "", ipc.NewInvalidArgs("missing id")
	}
	return tabs.ID(id), nil
}

func requireGroupID(args map[string]any) (tabs.ID, error) {
	id, ok := args["group_id"].(string)
	if !ok || id == "" {
		return "", ipc.NewInvalidArgs("missing group_id")
	}
	return tabs.ID(id), nil
}

// wrapErr converts a tabs.Manager error (always an *aerrors.Error per
// spec §4.1 "Failure model") into the router-recognized RPCError form.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if aerrors.Is(err, aerrors.NotFound) {
		return &ipc.RPCError{Code: ipc.MethodNotFound, Message: "not_found", Data: err.Error()}
	}
	return &ipc.RPCError{Code: ipc.InvalidParams, Message: "invalid_args", Data: err.Error()}
}
