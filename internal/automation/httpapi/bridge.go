// Package httpapi exposes AuroraView's AG-UI event bridge: a
// Server-Sent-Events endpoint that re-emits Tab Manager and Process
// Supervisor events as AG-UI-shaped {type, data} frames (SPEC_FULL.md
// "AG-UI event bridge"), plus the MCP server's HTTP transport.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"auroraview/internal/automation/mcp"
)

// Frame is one AG-UI event frame.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Bridge fans incoming Frames out to every connected SSE subscriber.
type Bridge struct {
	mu          sync.Mutex
	subscribers map[chan Frame]struct{}
}

// NewBridge builds an empty Bridge.
func NewBridge() *Bridge {
	return &Bridge{subscribers: make(map[chan Frame]struct{})}
}

// Publish fans frame out to all currently connected subscribers,
// dropping it for any subscriber whose channel is full rather than
// blocking the publisher.
func (b *Bridge) Publish(frame Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- frame:
		default:
		}
	}
}

func (b *Bridge) subscribe() chan Frame {
	ch := make(chan Frame, 32)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bridge) unsubscribe(ch chan Frame) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// Router builds the gin engine serving the AG-UI SSE stream and the
// MCP JSON-RPC HTTP endpoint, with CORS open to any embedded-WebView
// origin (the page is loaded from the custom auroraview:// scheme,
// whose Origin header browsers do not standardize).
func Router(bridge *Bridge, mcpServer *mcp.Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: false,
	}))

	r.GET("/agui/events", func(c *gin.Context) { streamEvents(c, bridge) })
	r.POST("/mcp/rpc", func(c *gin.Context) { handleMCPRPC(c, mcpServer) })

	return r
}

func streamEvents(c *gin.Context, bridge *Bridge) {
	ch := bridge.subscribe()
	defer bridge.unsubscribe(ch)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}

	for {
		select {
		case frame, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", data)
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func handleMCPRPC(c *gin.Context, mcpServer *mcp.Server) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := mcpServer.HandleBytes(body)
	c.Data(http.StatusOK, "application/json", out)
}
