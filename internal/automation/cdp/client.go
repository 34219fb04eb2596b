package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"auroraview/internal/alog"
)

// command is a raw outbound CDP message. CDP's wire format has no
// "jsonrpc" envelope field, so this is deliberately distinct from
// internal/ipc's Request/Response (which is reused verbatim by the
// MCP surface, whose protocol genuinely is JSON-RPC 2.0).
type command struct {
	ID     int64          `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// message is a raw inbound CDP message: either a command reply
// ({id, result|error}) or an event ({method, params}).
type message struct {
	ID     int64           `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *CDPError       `json:"error,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// CDPError mirrors the {code, message} error object CDP replies with.
type CDPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CDPError) Error() string { return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message) }

// EventHandler receives unsolicited CDP events (method with no id).
type EventHandler func(method string, params json.RawMessage)

// Client is a thin CDP consumer: it sends domain-agnostic commands
// over a devtools websocket and dispatches replies/events, without
// modeling individual CDP domains (spec §1 non-goal).
type Client struct {
	conn  *websocket.Conn
	idGen atomic.Int64
	log   *alog.Logger

	mu      sync.Mutex
	pending map[int64]chan *message
	closed  bool

	eventMu sync.RWMutex
	onEvent EventHandler
}

// Dial connects to a page's devtools websocket URL (e.g.
// "ws://127.0.0.1:9222/devtools/page/<targetID>", as produced by the
// instance registry's InspectorURL/WebSocketURL helpers).
func Dial(ctx context.Context, wsURL string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cdp: dial %s: %w", wsURL, err)
	}
	c := &Client{
		conn:    conn,
		log:     alog.Runtime,
		pending: make(map[int64]chan *message),
	}
	go c.readLoop()
	return c, nil
}

// OnEvent installs the handler invoked for every unsolicited CDP
// event. Only one handler is active at a time.
func (c *Client) OnEvent(handler EventHandler) {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()
	c.onEvent = handler
}

// Call sends a CDP command and waits for its reply.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	id := c.idGen.Add(1)
	respCh := make(chan *message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("cdp: client closed")
	}
	c.pending[id] = respCh
	c.mu.Unlock()

	cmd := command{ID: id, Method: method, Params: params}
	if err := c.conn.WriteJSON(cmd); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("cdp: write %s: %w", method, err)
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Client) readLoop() {
	for {
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.failAllPending(err)
			return
		}
		if msg.ID != 0 {
			c.deliver(&msg)
			continue
		}
		if msg.Method != "" {
			c.eventMu.RLock()
			handler := c.onEvent
			c.eventMu.RUnlock()
			if handler != nil {
				handler(msg.Method, msg.Params)
			}
		}
	}
}

func (c *Client) deliver(msg *message) {
	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	if ok {
		delete(c.pending, msg.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- msg
	}
}

func (c *Client) failAllPending(cause error) {
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[int64]chan *message)
	c.mu.Unlock()

	for id, ch := range pending {
		ch <- &message{ID: id, Error: &CDPError{Code: -1, Message: fmt.Sprintf("connection closed: %v", cause)}}
	}
	c.log.Warn("cdp: read loop terminated: %v", cause)
}

// Close shuts down the underlying websocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

