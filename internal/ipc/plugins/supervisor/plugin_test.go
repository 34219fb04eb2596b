package supervisor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auroraview/internal/ipc"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) Post(name string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
	return nil
}

func (r *recordingEmitter) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

func TestSpawnStreamsStdoutAndExit(t *testing.T) {
	emitter := &recordingEmitter{}
	p := New(emitter)

	pid, err := p.SpawnIPC(SpawnOptions{Command: "printf", Args: []string{"hello\nworld\n"}})
	require.NoError(t, err)
	assert.NotZero(t, pid)

	require.Eventually(t, func() bool {
		return emitter.count("process:exit") == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, emitter.count("process:stdout"), 1)
	assert.Empty(t, p.List())
}

func TestKillRemovesEntry(t *testing.T) {
	emitter := &recordingEmitter{}
	p := New(emitter)

	pid, err := p.SpawnIPC(SpawnOptions{Command: "sleep", Args: []string{"5"}})
	require.NoError(t, err)

	require.NoError(t, p.Kill(pid))
	assert.Empty(t, p.List())
}

func TestKillAllRejectsAfterShutdown(t *testing.T) {
	emitter := &recordingEmitter{}
	p := New(emitter)

	_, err := p.SpawnIPC(SpawnOptions{Command: "sleep", Args: []string{"5"}})
	require.NoError(t, err)

	p.KillAll(2 * time.Second)
	assert.Empty(t, p.List())

	_, err = p.Handle("spawn_ipc", map[string]any{"Command": "sleep"}, ipc.PluginScope{})
	require.Error(t, err)
}

func TestSendWritesToStdin(t *testing.T) {
	emitter := &recordingEmitter{}
	p := New(emitter)

	pid, err := p.SpawnIPC(SpawnOptions{Command: "cat"})
	require.NoError(t, err)

	require.NoError(t, p.Send(pid, "ping\n"))
	require.Eventually(t, func() bool {
		return emitter.count("process:stdout") >= 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Kill(pid))
}
