package supervisor

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"auroraview/internal/alog"
	"auroraview/internal/ipc"
)

// EventEmitter posts Plane B events; satisfied by *ipc.EventBus.
type EventEmitter interface {
	Post(name string, payload map[string]any) error
}

// Metrics records spawn/kill counts; nil-safe, satisfied by
// *telemetry.Metrics.
type Metrics interface {
	IncSpawn()
	IncKill()
}

// SpawnOptions mirrors spawn_ipc's argument object (spec §4.5).
type SpawnOptions struct {
	Command        string
	Args           []string
	WorkDir        string
	Env            map[string]string
	ModuleSearch   []string // merged into the child's module-search env in embedded mode
	VisibleConsole bool     // Windows: opt in to a visible console window
}

type child struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	pid    int
	mu     sync.Mutex
	closed bool
}

// Plugin is the Process Supervisor Plugin: it owns the child-process
// map and the shared shutdown state exclusively (spec §5).
type Plugin struct {
	mu       sync.Mutex
	children map[int]*child
	shutdown *shutdownState
	events   EventEmitter
	log      *alog.Logger

	// Metrics, when set, records spawn/kill counts (spec §9, ambient
	// concern carried regardless of any feature-level Non-goal).
	Metrics Metrics
}

// New creates a Process Supervisor Plugin that posts stdio/lifecycle
// events through events.
func New(events EventEmitter) *Plugin {
	return &Plugin{
		children: make(map[int]*child),
		shutdown: newShutdownState(),
		events:   events,
		log:      alog.Supervisor,
	}
}

// AsIPCPlugin adapts Plugin to the generic ipc.Plugin/HandlerFunc shape.
func (p *Plugin) AsIPCPlugin() *ipc.Plugin {
	return &ipc.Plugin{
		Name:     "supervisor",
		Commands: map[string]struct{}{"spawn_ipc": {}, "kill": {}, "kill_all": {}, "send": {}, "list": {}},
		Handle:   p.Handle,
	}
}

// Handle dispatches a single supervisor command; it is a pure function
// of (command, args, scope), as required by the router contract.
func (p *Plugin) Handle(command string, args map[string]any, scope ipc.PluginScope) (ipc.Result, error) {
	if p.shutdown.isShutdown() && command != "list" {
		return nil, &ipc.RPCError{Code: ipc.ScopeDenied, Message: "shutdown_error", Data: "supervisor is shutting down"}
	}
	if !scope.Allows(command) {
		return nil, ipc.NewScopeDeniedErr(command)
	}

	switch command {
	case "spawn_ipc":
		var opts SpawnOptions
		if err := ipc.DecodeArgs(args, &opts); err != nil {
			return nil, ipc.NewInvalidArgs(err.Error())
		}
		pid, err := p.SpawnIPC(opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"pid": pid}, nil
	case "kill":
		pid, ok := args["pid"].(float64)
		if !ok {
			return nil, ipc.NewInvalidArgs("pid must be a number")
		}
		return nil, p.Kill(int(pid))
	case "kill_all":
		p.KillAll(2 * time.Second)
		return nil, nil
	case "send":
		pid, ok := args["pid"].(float64)
		if !ok {
			return nil, ipc.NewInvalidArgs("pid must be a number")
		}
		data, _ := args["data"].(string)
		return nil, p.Send(int(pid), data)
	case "list":
		return p.List(), nil
	default:
		return nil, ipc.NewCommandNotFound(command)
	}
}

// SpawnIPC builds a child process with piped stdio, unbuffered-output
// and non-packed environment set for scripting-backend children, and
// starts stdout/stderr streaming goroutines.
func (p *Plugin) SpawnIPC(opts SpawnOptions) (int, error) {
	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Dir = opts.WorkDir

	env := os.Environ()
	env = append(env, "PYTHONUNBUFFERED=1")
	env = removeEnv(env, "AURORAVIEW_PACKED")
	if len(opts.ModuleSearch) > 0 {
		env = append(env, "PYTHONPATH="+joinPaths(opts.ModuleSearch))
	}
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	if runtime.GOOS == "windows" {
		applyWindowsCreationFlags(cmd, opts.VisibleConsole)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return 0, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, err
	}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	c := &child{cmd: cmd, stdin: stdin, pid: pid}

	p.mu.Lock()
	p.children[pid] = c
	p.mu.Unlock()

	go p.runChild(c, stdout, stderr)

	if p.Metrics != nil {
		p.Metrics.IncSpawn()
	}
	p.log.Info("spawned child pid=%d command=%s", pid, opts.Command)
	return pid, nil
}

func (p *Plugin) stream(c *child, r io.ReadCloser, eventName string) {
	guard := p.shutdown.beginOperation()
	defer guard.release()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if p.shutdown.isShutdown() {
			continue
		}
		if p.events != nil {
			p.events.Post(eventName, map[string]any{"pid": c.pid, "data": line})
		}
	}
}

// runChild drains both stdio streams to EOF before calling cmd.Wait,
// per os/exec's requirement that Wait not race in-flight pipe reads;
// this also guarantees process:exit is observed only after every
// process:stdout/process:stderr line has been posted (spec §4.5 "When
// the stream ends…", testable property 8).
func (p *Plugin) runChild(c *child, stdout, stderr io.ReadCloser) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); p.stream(c, stdout, "process:stdout") }()
	go func() { defer wg.Done(); p.stream(c, stderr, "process:stderr") }()
	wg.Wait()

	err := c.cmd.Wait()
	code := exitCode(c.cmd, err)

	p.mu.Lock()
	delete(p.children, c.pid)
	p.mu.Unlock()

	if !p.shutdown.isShutdown() && p.events != nil {
		p.events.Post("process:exit", map[string]any{"pid": c.pid, "code": code})
	}
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

// Kill sends the OS kill signal and waits up to 500ms (50ms poll
// period) for the process to exit; the entry is removed regardless.
func (p *Plugin) Kill(pid int) error {
	p.mu.Lock()
	c, ok := p.children[pid]
	p.mu.Unlock()
	if !ok {
		return nil
	}

	_ = c.cmd.Process.Kill()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if c.cmd.ProcessState != nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	p.mu.Lock()
	delete(p.children, pid)
	p.mu.Unlock()
	if p.Metrics != nil {
		p.Metrics.IncKill()
	}
	return nil
}

// KillAll signals shutdown, waits up to timeout for in-flight
// streaming operations to drain, then kills every remaining child.
func (p *Plugin) KillAll(timeout time.Duration) {
	p.shutdown.signal()
	p.shutdown.waitForDrain(timeout)

	p.mu.Lock()
	pids := make([]int, 0, len(p.children))
	for pid := range p.children {
		pids = append(pids, pid)
	}
	p.mu.Unlock()

	for _, pid := range pids {
		p.Kill(pid)
	}
}

// Send writes data to the child's stdin and flushes it.
func (p *Plugin) Send(pid int, data string) error {
	p.mu.Lock()
	c, ok := p.children[pid]
	p.mu.Unlock()
	if !ok {
		return &ipc.RPCError{Code: ipc.InvalidParams, Message: "invalid_args", Data: "no such child pid"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return &ipc.RPCError{Code: ipc.InvalidParams, Message: "invalid_args", Data: "stdin not piped or closed"}
	}
	_, err := io.WriteString(c.stdin, data)
	return err
}

// List returns the currently tracked child pids.
func (p *Plugin) List() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, len(p.children))
	for pid := range p.children {
		out = append(out, pid)
	}
	return out
}

func removeEnv(env []string, key string) []string {
	out := env[:0:0]
	prefix := key + "="
	for _, kv := range env {
		if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func joinPaths(paths []string) string {
	out := ""
	for i, p := range paths {
		if i > 0 {
			out += string(os.PathListSeparator)
		}
		out += p
	}
	return out
}
