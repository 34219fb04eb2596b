// Package supervisor implements the Process Supervisor Plugin (spec
// §4.5): spawn_ipc, kill, kill_all, send, list, with graceful stream
// drain on shutdown.
package supervisor

import (
	"sync"
	"sync/atomic"
	"time"
)

// shutdownState is the counted drain primitive described in spec §5:
// is_shutdown is a non-blocking read, beginOperation is an RAII guard
// that increments a counter on creation and decrements on release, and
// waitForDrain blocks until the counter reaches zero or a timeout
// elapses.
type shutdownState struct {
	shutdown atomic.Bool
	wg       sync.WaitGroup
}

func newShutdownState() *shutdownState {
	return &shutdownState{}
}

// isShutdown reports whether shutdown has been signaled.
func (s *shutdownState) isShutdown() bool {
	return s.shutdown.Load()
}

// signal marks shutdown as in progress. Idempotent.
func (s *shutdownState) signal() {
	s.shutdown.Store(true)
}

// operationGuard is held by an in-flight streaming operation so it
// counts toward waitForDrain.
type operationGuard struct {
	state *shutdownState
	done  bool
	mu    sync.Mutex
}

// beginOperation registers one in-flight operation. Call release()
// exactly once when the operation completes.
func (s *shutdownState) beginOperation() *operationGuard {
	s.wg.Add(1)
	return &operationGuard{state: s}
}

func (g *operationGuard) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}
	g.done = true
	g.state.wg.Done()
}

// waitForDrain returns true if every begun operation released before
// timeout elapsed.
func (s *shutdownState) waitForDrain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
