package cdp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeDevtoolsServer(t *testing.T, handle func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestClientCallReturnsResult(t *testing.T) {
	srv := newFakeDevtoolsServer(t, func(conn *websocket.Conn) {
		var cmd command
		require.NoError(t, conn.ReadJSON(&cmd))
		assert.Equal(t, "Page.navigate", cmd.Method)

		reply := map[string]any{"id": cmd.ID, "result": map[string]any{"frameId": "f1"}}
		require.NoError(t, conn.WriteJSON(reply))
		time.Sleep(50 * time.Millisecond)
	})

	client, err := Dial(context.Background(), wsURL(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Call(context.Background(), "Page.navigate", map[string]any{"url": "https://example.com"})
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Equal(t, "f1", decoded["frameId"])
}

func TestClientCallReturnsErrorObject(t *testing.T) {
	srv := newFakeDevtoolsServer(t, func(conn *websocket.Conn) {
		var cmd command
		require.NoError(t, conn.ReadJSON(&cmd))
		reply := map[string]any{"id": cmd.ID, "error": map[string]any{"code": -32000, "message": "target gone"}}
		require.NoError(t, conn.WriteJSON(reply))
		time.Sleep(50 * time.Millisecond)
	})

	client, err := Dial(context.Background(), wsURL(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Call(context.Background(), "Target.activate", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target gone")
}

func TestClientDispatchesEvents(t *testing.T) {
	srv := newFakeDevtoolsServer(t, func(conn *websocket.Conn) {
		event := map[string]any{"method": "Page.loadEventFired", "params": map[string]any{"timestamp": 1.0}}
		require.NoError(t, conn.WriteJSON(event))
		time.Sleep(100 * time.Millisecond)
	})

	client, err := Dial(context.Background(), wsURL(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	received := make(chan string, 1)
	client.OnEvent(func(method string, params json.RawMessage) {
		received <- method
	})

	select {
	case method := <-received:
		assert.Equal(t, "Page.loadEventFired", method)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestClientCallContextCancellation(t *testing.T) {
	srv := newFakeDevtoolsServer(t, func(conn *websocket.Conn) {
		var cmd command
		conn.ReadJSON(&cmd)
		time.Sleep(time.Second)
	})

	client, err := Dial(context.Background(), wsURL(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Call(ctx, "Runtime.evaluate", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
