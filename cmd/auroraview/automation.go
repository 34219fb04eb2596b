package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auroraview/internal/alog"
	"auroraview/internal/automation/httpapi"
	"auroraview/internal/automation/mcp"
	"auroraview/internal/ipc"
	"auroraview/internal/webviewhost"
)

// snapshotDeadline bounds how long Snapshot waits for the page's
// accessibility walk to report back before giving up.
const snapshotDeadline = 3 * time.Second

// snapshotScript is evaluated in the page to build one Snapshot and
// deliver it back over Plane A as a normal "plugin:automation|report"
// request (spec §3 "Snapshot (test inspector)"). Refs are scoped to
// this single walk, matching "invalidate its ref cache at every
// snapshot()" (spec §9): each call assigns a fresh "@N" sequence.
const snapshotScript = `(function(requestID){
  var refs = {}, n = 0;
  var nodes = document.querySelectorAll(
    'a,button,input,select,textarea,[role],[tabindex],[onclick]');
  nodes.forEach(function(el){
    n += 1;
    var ref = '@' + n;
    var r = el.getBoundingClientRect();
    refs[ref] = {
      role: el.getAttribute('role') || el.tagName.toLowerCase(),
      name: (el.getAttribute('aria-label') || el.innerText || el.value || '').trim().slice(0,120),
      description: el.getAttribute('aria-description') || '',
      selector: el.tagName.toLowerCase() + (el.id ? '#' + el.id : ''),
      backend_node_id: n,
      x: r.x, y: r.y, width: r.width, height: r.height
    };
  });
  var snapshot = {
    request_id: requestID,
    title: document.title,
    url: location.href,
    viewport_width: window.innerWidth,
    viewport_height: window.innerHeight,
    refs: refs,
    accessibility_tree: document.body ? document.body.innerText.slice(0, 4000) : ''
  };
  window.__auroraviewPostMessage && window.__auroraviewPostMessage(JSON.stringify({
    jsonrpc: '2.0',
    id: requestID,
    method: 'plugin:automation|report',
    params: snapshot
  }));
})(%q);`

// snapshotProvider implements mcp.SnapshotProvider by round-tripping an
// EvalJS-injected accessibility walk through Plane A: Snapshot enqueues
// snapshotScript, then blocks on a per-request channel that the
// "automation" plugin's "report" command fills in when the page's
// postMessage call is dispatched back through the Router (spec §4.4,
// §4.6 "message-received hook forwards JSON messages into the IPC
// router" — this is that same path used in the opposite direction from
// the usual page->host command dispatch).
type snapshotProvider struct {
	host *webviewhost.Host

	mu      sync.Mutex
	pending map[string]chan mcp.Snapshot
}

func newSnapshotProvider(host *webviewhost.Host) *snapshotProvider {
	return &snapshotProvider{host: host, pending: make(map[string]chan mcp.Snapshot)}
}

func (p *snapshotProvider) Snapshot(tabID string) (mcp.Snapshot, error) {
	requestID := fmt.Sprintf("snap-%s-%d", tabID, time.Now().UnixNano())
	ch := make(chan mcp.Snapshot, 1)

	p.mu.Lock()
	p.pending[requestID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, requestID)
		p.mu.Unlock()
	}()

	p.host.Enqueue(webviewhost.EvalJS(fmt.Sprintf(snapshotScript, requestID)))

	select {
	case snap := <-ch:
		return snap, nil
	case <-time.After(snapshotDeadline):
		return mcp.Snapshot{}, fmt.Errorf("automation: snapshot %s timed out waiting for page report", tabID)
	}
}

// asIPCPlugin registers the "automation" Plane A plugin that receives
// the page's snapshot report and wakes the waiting Snapshot call.
func (p *snapshotProvider) asIPCPlugin() *ipc.Plugin {
	return &ipc.Plugin{
		Name:     "automation",
		Commands: map[string]struct{}{"report": {}},
		Handle: func(command string, args map[string]any, scope ipc.PluginScope) (ipc.Result, error) {
			var snap mcp.Snapshot
			if err := ipc.DecodeArgs(args, &snap); err != nil {
				return nil, ipc.NewInvalidArgs(err.Error())
			}
			requestID, _ := args["request_id"].(string)

			p.mu.Lock()
			ch, ok := p.pending[requestID]
			p.mu.Unlock()
			if ok {
				select {
				case ch <- snap:
				default:
				}
			}
			return nil, nil
		},
	}
}

// automationServer owns the loopback HTTP listener serving the AG-UI
// SSE stream, the MCP RPC endpoint, and a Prometheus /metrics scrape
// target for the telemetry bundle (spec §1 "expose automation surfaces
// (CDP, MCP, AG-UI)"). It is only started in --debug runs.
type automationServer struct {
	srv *http.Server
	ln  net.Listener
}

// startAutomationServer binds an ephemeral loopback port (concurrent
// AuroraView instances must not collide on a fixed one, mirroring how
// the Instance Registry already tracks a per-instance CDP port rather
// than assuming a single well-known one) and serves bridge/mcpServer
// until Close is called.
func startAutomationServer(bridge *httpapi.Bridge, mcpServer *mcp.Server) (*automationServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("automation: listen: %w", err)
	}
	router := httpapi.Router(bridge, mcpServer)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	srv := &http.Server{Handler: router}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			alog.Runtime.Warn("automation server stopped: %v", err)
		}
	}()
	alog.Runtime.Info("automation surfaces listening on %s (/agui/events, /mcp/rpc, /metrics)", ln.Addr())
	return &automationServer{srv: srv, ln: ln}, nil
}

// Addr returns the bound loopback address (e.g. "127.0.0.1:54321").
func (a *automationServer) Addr() string { return a.ln.Addr().String() }

// Close gracefully stops the automation HTTP server.
func (a *automationServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return a.srv.Shutdown(ctx)
}
