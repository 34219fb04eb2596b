// Package apppaths resolves the per-OS application directories named
// literally in spec §6: the Instance Registry's directory and the
// Runtime Extractor's cache root. Both are host-convention lookups
// (env vars, home dir) with no ecosystem library in the pack doing
// this more idiomatically than os/filepath, so it stays on the
// standard library.
package apppaths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "AuroraView"

// DataDir returns the per-OS application data root used for the
// Instance Registry: Windows %LOCALAPPDATA%/AuroraView, macOS
// ~/Library/Application Support/AuroraView, Linux $XDG_DATA_HOME/auroraview
// (fallback ~/.local/share/auroraview) (spec §6).
func DataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "AppData", "Local", appName), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", appName), nil
	default:
		if base := os.Getenv("XDG_DATA_HOME"); base != "" {
			return filepath.Join(base, "auroraview"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "auroraview"), nil
	}
}

// InstancesDir returns the directory the Instance Registry writes its
// per-window JSON records into (spec §6).
func InstancesDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "instances"), nil
}

// WebViewDataRoot returns the root directory under which each running
// process keeps a PID-suffixed WebView user-data directory
// ("process_<N>"), scanned by the Cleanup Engine (spec §4.9, §5).
func WebViewDataRoot() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "webview-data"), nil
}

// CacheDir returns the per-OS cache root the Runtime Extractor
// hash-addresses its extraction directories under (spec §4.2 "Runtime
// extractor" step 2: "<user-cache>/<app>/<hash>/").
func CacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}
