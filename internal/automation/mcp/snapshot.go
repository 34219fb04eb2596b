package mcp

// ElementRef is one entry in a Snapshot's ("@N" -> descriptor) map
// (spec §3 "Snapshot (test inspector)"). Refs are stable only within
// the snapshot that produced them.
type ElementRef struct {
	Role        string  `json:"role"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Selector    string  `json:"selector"`
	BackendNode int64   `json:"backend_node_id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

// Snapshot is a point-in-time accessibility capture of one WebView.
type Snapshot struct {
	Title             string                `json:"title"`
	URL               string                `json:"url"`
	ViewportWidth     int                   `json:"viewport_width"`
	ViewportHeight    int                   `json:"viewport_height"`
	Refs              map[string]ElementRef `json:"refs"`
	AccessibilityTree string                `json:"accessibility_tree"`
}

// SnapshotProvider captures a Snapshot of the WebView a tab ID
// identifies. The real implementation evaluates an accessibility-tree
// walk in the page via the Message Queue's EvalJS command; tests
// supply a stub.
type SnapshotProvider interface {
	Snapshot(tabID string) (Snapshot, error)
}
