// Package registry implements the Instance Registry (spec §4.8): a
// directory holding one pretty-printed JSON record per live window,
// filtered by process liveness on read.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"auroraview/internal/alog"
	"auroraview/internal/procprobe"
)

// Instance is one registered window's record (spec §5 "on-disk format").
type Instance struct {
	WindowID   string         `json:"window_id"`
	Title      string         `json:"title"`
	CDPPort    int            `json:"cdp_port"`
	AppName    string         `json:"app_name"`
	AppVersion string         `json:"app_version"`
	PID        int            `json:"pid"`
	StartTime  string         `json:"start_time"`
	URL        string         `json:"url"`
	HTMLTitle  string         `json:"html_title"`
	IsLoading  bool           `json:"is_loading"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	DCCType   string `json:"dcc_type,omitempty"`
	DCCVersion string `json:"dcc_version,omitempty"`
	PanelName string `json:"panel_name,omitempty"`
	DockArea  string `json:"dock_area,omitempty"`
}

// WebSocketURL returns the DevTools protocol endpoint for this instance.
func (i Instance) WebSocketURL() string {
	return fmt.Sprintf("ws://127.0.0.1:%d/devtools/page/1", i.CDPPort)
}

// InspectorURL returns the canonical DevTools inspector URL.
func (i Instance) InspectorURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/devtools/inspector.html?ws=127.0.0.1:%d/devtools/page/1", i.CDPPort, i.CDPPort)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// sanitizeFilename replaces anything outside [A-Za-z0-9_-] with an
// underscore (spec §4.8 "Safety").
func sanitizeFilename(windowID string) string {
	return unsafeFilenameChars.ReplaceAllString(windowID, "_")
}

// Registry manages the on-disk instance catalog under dir.
type Registry struct {
	dir string
	pid int
	mu  sync.Mutex
	log *alog.Logger

	// Metrics, when set, records sweep counts (spec §9, ambient concern).
	Metrics Metrics
}

// Metrics records GetAll sweep statistics; nil-safe, satisfied by
// *telemetry.Metrics.
type Metrics interface {
	IncSweep()
	AddStaleDropped(n int)
}

// New creates a Registry rooted at dir, creating it if necessary.
func New(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create dir: %w", err)
	}
	return &Registry{dir: dir, pid: os.Getpid(), log: alog.Registry}, nil
}

func (r *Registry) path(windowID string) string {
	return filepath.Join(r.dir, sanitizeFilename(windowID)+".json")
}

// Register writes a new instance record, pretty-printed.
func (r *Registry) Register(info Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info.PID == 0 {
		info.PID = r.pid
	}
	if info.StartTime == "" {
		info.StartTime = time.Now().UTC().Format(time.RFC3339)
	}
	return r.writeLocked(info)
}

func (r *Registry) writeLocked(info Instance) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal: %w", err)
	}
	return os.WriteFile(r.path(info.WindowID), data, 0o644)
}

// Unregister removes windowID's record.
func (r *Registry) Unregister(windowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := os.Remove(r.path(windowID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Update applies mutator to the current record and writes it back.
func (r *Registry) Update(windowID string, mutator func(*Instance)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, err := r.readLocked(windowID)
	if err != nil {
		return err
	}
	mutator(&inst)
	return r.writeLocked(inst)
}

func (r *Registry) readLocked(windowID string) (Instance, error) {
	data, err := os.ReadFile(r.path(windowID))
	if err != nil {
		return Instance{}, err
	}
	var inst Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return Instance{}, err
	}
	return inst, nil
}

// Get returns the current record for windowID.
func (r *Registry) Get(windowID string) (Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readLocked(windowID)
}

// GetAll reads every record, silently deleting files whose PID is dead
// or whose content fails to parse (spec §4.8, invariant 9).
func (r *Registry) GetAll() ([]Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("registry: read dir: %w", err)
	}

	var live []Instance
	var staleDropped int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var inst Instance
		if err := json.Unmarshal(data, &inst); err != nil {
			r.log.Warn("dropping unparsable registry file %s", e.Name())
			os.Remove(path)
			staleDropped++
			continue
		}
		if !procprobe.Alive(inst.PID) {
			r.log.Debug("dropping stale registry entry for dead pid %d", inst.PID)
			os.Remove(path)
			staleDropped++
			continue
		}
		live = append(live, inst)
	}
	if r.Metrics != nil {
		r.Metrics.IncSweep()
		r.Metrics.AddStaleDropped(staleDropped)
	}
	return live, nil
}

// GetByCDPPort returns the (live) instance bound to port, if any.
func (r *Registry) GetByCDPPort(port int) (Instance, bool, error) {
	all, err := r.GetAll()
	if err != nil {
		return Instance{}, false, err
	}
	for _, inst := range all {
		if inst.CDPPort == port {
			return inst, true, nil
		}
	}
	return Instance{}, false, nil
}

// Cleanup removes every record created by the current process.
func (r *Registry) Cleanup() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("registry: read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var inst Instance
		if json.Unmarshal(data, &inst) == nil && inst.PID == r.pid {
			os.Remove(path)
		}
	}
	return nil
}
