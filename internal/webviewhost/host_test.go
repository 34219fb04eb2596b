package webviewhost

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine is a test double standing in for a real platform Engine.
type fakeEngine struct {
	mu        sync.Mutex
	valid     bool
	pumpQuit  bool
	pumpErr   error
	hook      MessageHook
	navigated []string
	evaluated []string
	destroyed bool
	created   bool
}

func (f *fakeEngine) CreateEmbedded(ctx context.Context, handle WindowHandle, x, y, w, h int, cfg Config) error {
	f.created = true
	f.valid = true
	return nil
}
func (f *fakeEngine) Navigate(url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}
func (f *fakeEngine) LoadHTML(html, baseURL string) error { return nil }
func (f *fakeEngine) Eval(script string) error {
	f.evaluated = append(f.evaluated, script)
	return nil
}
func (f *fakeEngine) EmitEvent(name, json string) error { return nil }
func (f *fakeEngine) SetMessageHook(hook MessageHook)   { f.hook = hook }
func (f *fakeEngine) IsWindowValid() bool               { return f.valid }
func (f *fakeEngine) PumpNative(maxIterations int) (bool, error) {
	return f.pumpQuit, f.pumpErr
}
func (f *fakeEngine) Destroy() { f.destroyed = true }

func TestProcessEventsDrainsQueuedCommands(t *testing.T) {
	engine := &fakeEngine{valid: true}
	h := New(engine, func([]byte) {})

	h.Enqueue(LoadURL("https://example.com"))
	h.Enqueue(EvalJS("console.log(1)"))

	quit, err := h.ProcessEvents()
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, []string{"https://example.com"}, engine.navigated)
	assert.Equal(t, []string{"console.log(1)"}, engine.evaluated)
}

func TestProcessEventsQuitsOnInvalidWindow(t *testing.T) {
	engine := &fakeEngine{valid: false}
	h := New(engine, func([]byte) {})

	quit, err := h.ProcessEvents()
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestProcessEventsQuitsOnNativeQuitSignal(t *testing.T) {
	engine := &fakeEngine{valid: true, pumpQuit: true}
	h := New(engine, func([]byte) {})

	quit, err := h.ProcessEvents()
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestProcessEventsPropagatesPumpError(t *testing.T) {
	engine := &fakeEngine{valid: true, pumpErr: errors.New("native pump failed")}
	h := New(engine, func([]byte) {})

	_, err := h.ProcessEvents()
	assert.Error(t, err)
}

func TestDestroyDelegatesToEngine(t *testing.T) {
	engine := &fakeEngine{valid: true}
	h := New(engine, func([]byte) {})

	h.Destroy()
	assert.True(t, engine.destroyed)
}

func TestCreateEmbeddedWiresMessageHook(t *testing.T) {
	engine := &fakeEngine{}
	var received []byte
	h := New(engine, func(raw []byte) { received = raw })

	require.NoError(t, h.CreateEmbedded(context.Background(), WindowHandle(1), 0, 0, 100, 100, Config{}))
	require.NotNil(t, engine.hook)

	engine.hook([]byte(`{"ok":true}`))
	assert.Equal(t, `{"ok":true}`, string(received))
}
