// Package cleanup implements the Cleanup Engine (spec §4.9): a
// startup scan that removes stale per-process WebView data
// directories belonging to dead PIDs.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"auroraview/internal/alog"
	"auroraview/internal/procprobe"
)

// Stats summarizes one Run without mutating anything beyond the
// actual removals it performs.
type Stats struct {
	Total      int
	Alive      int
	Stale      int
	StaleBytes int64
}

// Engine runs the stale-directory scan at most once per process
// (guarded by a sync.Once), matching spec §4.9 "Runs at most once per
// process (guarded by an atomic flag)".
type Engine struct {
	root string
	pid  int
	once sync.Once
	log  *alog.Logger
}

// New creates an Engine rooted at root (the WebView-per-process data
// directory root).
func New(root string) *Engine {
	return &Engine{root: root, pid: os.Getpid(), log: alog.Cleanup}
}

// Run performs the scan exactly once across this Engine's lifetime;
// subsequent calls do not scan and return a zero Stats.
func (e *Engine) Run() Stats {
	var stats Stats
	e.once.Do(func() {
		stats = e.scan()
	})
	return stats
}

func (e *Engine) scan() Stats {
	var stats Stats

	entries, err := os.ReadDir(e.root)
	if err != nil {
		if !os.IsNotExist(err) {
			e.log.Warn("cleanup scan failed to read %s: %v", e.root, err)
		}
		return stats
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, ok := parseProcessDir(entry.Name())
		if !ok {
			continue
		}
		stats.Total++

		if pid == e.pid {
			stats.Alive++
			continue
		}

		dirPath := filepath.Join(e.root, entry.Name())
		if procprobe.Alive(pid) {
			stats.Alive++
			continue
		}

		size := dirSize(dirPath)
		if err := os.RemoveAll(dirPath); err != nil {
			e.log.Warn("failed to remove stale dir %s (possibly locked): %v", dirPath, err)
			continue
		}
		stats.Stale++
		stats.StaleBytes += size
	}
	return stats
}

const processDirPrefix = "process_"

func parseProcessDir(name string) (int, bool) {
	if !strings.HasPrefix(name, processDirPrefix) {
		return 0, false
	}
	pid, err := strconv.Atoi(name[len(processDirPrefix):])
	if err != nil {
		return 0, false
	}
	return pid, true
}

// ProcessDirName builds a "process_<pid>" directory name.
func ProcessDirName(pid int) string {
	return fmt.Sprintf("%s%d", processDirPrefix, pid)
}

func dirSize(path string) int64 {
	var total int64
	filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
