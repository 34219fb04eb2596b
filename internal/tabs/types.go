// Package tabs implements the Tab Manager (spec §4.1): the state
// machine for multi-WebView windows with groups, ordering, and
// active-tab invariants. It owns no native WebView resources — it is
// pure state, mutated only through this package's write-locked store.
package tabs

// ID identifies a tab or group.
type ID string

// Tab is the authoritative state of one browser tab.
type Tab struct {
	ID          ID
	URL         string
	Title       string
	Loading     bool
	CanGoBack   bool
	CanGoForward bool
	FaviconURL  string
	Pinned      bool
	Muted       bool
	Position    int
	GroupID     ID // empty when ungrouped
}

// Group is an ordered collection of tabs, collapsible in the UI.
type Group struct {
	ID        ID
	Name      string
	Tabs      []ID
	Collapsed bool
}
