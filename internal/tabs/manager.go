package tabs

import (
	"sync"

	"github.com/google/uuid"

	"auroraview/internal/aerrors"
)

func newID() ID { return ID(uuid.NewString()) }

// Manager is the authoritative store of tabs and groups for a single
// window. All reads and writes funnel through its RWMutex; observer
// callbacks always run after the lock is released, matching spec §5's
// "locks are never held across any suspension point" rule, extended
// here to cover "across any caller-supplied callback".
type Manager struct {
	mu       sync.RWMutex
	tabs     map[ID]*Tab
	groups   map[ID]*Group
	order    []ID // tab ids, authoritative ordering
	activeID ID

	observersMu sync.RWMutex
	observers   []Observer
}

// New creates an empty Tab Manager.
func New() *Manager {
	return &Manager{
		tabs:   make(map[ID]*Tab),
		groups: make(map[ID]*Group),
	}
}

// Observe registers an observer; events are delivered in emission
// order to every registered observer.
func (m *Manager) Observe(o Observer) {
	m.observersMu.Lock()
	defer m.observersMu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *Manager) emit(events ...Event) {
	m.observersMu.RLock()
	observers := append([]Observer(nil), m.observers...)
	m.observersMu.RUnlock()
	for _, e := range events {
		for _, o := range observers {
			o.OnTabEvent(e)
		}
	}
}

// Create inserts a fresh tab at the end of order (invariant 1). If no
// tab is currently active, the new tab becomes active.
func (m *Manager) Create(url string) ID {
	id := newID()
	var becameActive bool

	m.mu.Lock()
	t := &Tab{ID: id, URL: url, Position: len(m.order)}
	m.tabs[id] = t
	m.order = append(m.order, id)
	if m.activeID == "" {
		m.activeID = id
		becameActive = true
	}
	m.mu.Unlock()

	events := []Event{{Kind: Created, TabID: id}}
	if becameActive {
		events = append(events, Event{Kind: Activated, TabID: id})
	}
	m.emit(events...)
	return id
}

// Duplicate creates a new tab sharing the source tab's URL; all other
// state is default.
func (m *Manager) Duplicate(id ID) (ID, error) {
	m.mu.RLock()
	src, ok := m.tabs[id]
	var url string
	if ok {
		url = src.URL
	}
	m.mu.RUnlock()
	if !ok {
		return "", aerrors.New(aerrors.NotFound, "tabs.duplicate", "tab not found")
	}
	return m.Create(url), nil
}

// Close removes a tab from all groups and from order (invariant 2). If
// it was active, the first tab remaining in order is promoted (or no
// tab is active if none remain).
func (m *Manager) Close(id ID) error {
	m.mu.Lock()
	if _, ok := m.tabs[id]; !ok {
		m.mu.Unlock()
		return aerrors.New(aerrors.NotFound, "tabs.close", "tab not found")
	}

	tab := m.tabs[id]
	if tab.GroupID != "" {
		m.removeFromGroupLocked(id, tab.GroupID)
	}
	delete(m.tabs, id)
	m.order = removeID(m.order, id)
	m.renumberLocked()

	wasActive := m.activeID == id
	var newActive ID
	if wasActive {
		if len(m.order) > 0 {
			newActive = m.order[0]
		}
		m.activeID = newActive
	}
	m.mu.Unlock()

	events := []Event{{Kind: Closed, TabID: id}}
	if wasActive && newActive != "" {
		events = append(events, Event{Kind: Activated, TabID: newActive})
	}
	m.emit(events...)
	return nil
}

// Activate makes id the active tab, emitting Deactivated(old) (if the
// previous active tab differs) followed by Activated(new).
func (m *Manager) Activate(id ID) error {
	m.mu.Lock()
	if _, ok := m.tabs[id]; !ok {
		m.mu.Unlock()
		return aerrors.New(aerrors.NotFound, "tabs.activate", "tab not found")
	}
	old := m.activeID
	m.activeID = id
	m.mu.Unlock()

	var events []Event
	if old != "" && old != id {
		events = append(events, Event{Kind: Deactivated, TabID: old})
	}
	events = append(events, Event{Kind: Activated, TabID: id})
	m.emit(events...)
	return nil
}

// Active returns the active tab id, or "" if none.
func (m *Manager) Active() ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// Order returns a snapshot of the tab ordering.
func (m *Manager) Order() []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ID(nil), m.order...)
}

// Get returns a copy of the tab's current state.
func (m *Manager) Get(id ID) (Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tabs[id]
	if !ok {
		return Tab{}, aerrors.New(aerrors.NotFound, "tabs.get", "tab not found")
	}
	return *t, nil
}

// All returns a snapshot of every tab, in order.
func (m *Manager) All() []Tab {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tab, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.tabs[id])
	}
	return out
}

// Reorder moves id within the order vector; newIndex is clamped to the
// current length (invariant 3).
func (m *Manager) Reorder(id ID, newIndex int) error {
	m.mu.Lock()
	if _, ok := m.tabs[id]; !ok {
		m.mu.Unlock()
		return aerrors.New(aerrors.NotFound, "tabs.reorder", "tab not found")
	}
	m.order = removeID(m.order, id)
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(m.order) {
		newIndex = len(m.order)
	}
	m.order = append(m.order[:newIndex:newIndex], append([]ID{id}, m.order[newIndex:]...)...)
	m.renumberLocked()
	m.mu.Unlock()

	m.emit(Event{Kind: Reordered, TabID: id})
	return nil
}

func (m *Manager) renumberLocked() {
	for i, id := range m.order {
		m.tabs[id].Position = i
	}
}

func removeID(ids []ID, target ID) []ID {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// --- setters ---

// UpdateTitle sets the tab's title; idempotent, always emits.
func (m *Manager) UpdateTitle(id ID, title string) error {
	return m.update(id, TitleChanged, title, func(t *Tab) { t.Title = title })
}

// UpdateURL sets the tab's URL; idempotent, always emits.
func (m *Manager) UpdateURL(id ID, url string) error {
	return m.update(id, URLChanged, url, func(t *Tab) { t.URL = url })
}

// UpdateLoading sets the tab's loading flag; idempotent, always emits.
func (m *Manager) UpdateLoading(id ID, loading bool) error {
	return m.update(id, LoadingChanged, loading, func(t *Tab) { t.Loading = loading })
}

// UpdateHistory sets the back/forward navigation flags.
func (m *Manager) UpdateHistory(id ID, canBack, canForward bool) error {
	type history struct{ CanBack, CanForward bool }
	return m.update(id, HistoryChanged, history{canBack, canForward}, func(t *Tab) {
		t.CanGoBack, t.CanGoForward = canBack, canForward
	})
}

// UpdateFavicon sets the tab's favicon URL.
func (m *Manager) UpdateFavicon(id ID, faviconURL string) error {
	return m.update(id, FaviconChanged, faviconURL, func(t *Tab) { t.FaviconURL = faviconURL })
}

// SetPinned sets the pinned flag (orthogonal to tab lifecycle).
func (m *Manager) SetPinned(id ID, pinned bool) error {
	return m.update(id, "", nil, func(t *Tab) { t.Pinned = pinned })
}

// SetMuted sets the muted flag (orthogonal to tab lifecycle).
func (m *Manager) SetMuted(id ID, muted bool) error {
	return m.update(id, "", nil, func(t *Tab) { t.Muted = muted })
}

func (m *Manager) update(id ID, kind EventKind, payload any, mutate func(*Tab)) error {
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return aerrors.New(aerrors.NotFound, "tabs.update", "tab not found")
	}
	mutate(t)
	m.mu.Unlock()

	if kind != "" {
		m.emit(Event{Kind: kind, TabID: id, Payload: payload})
	}
	return nil
}

// --- groups ---

// CreateGroup creates a group containing the given tabs. Each tab's
// group membership is replaced (a tab belongs to at most one group).
func (m *Manager) CreateGroup(name string, tabIDs []ID) (ID, error) {
	gid := newID()
	m.mu.Lock()
	for _, tid := range tabIDs {
		if _, ok := m.tabs[tid]; !ok {
			m.mu.Unlock()
			return "", aerrors.New(aerrors.NotFound, "tabs.create_group", "tab not found: "+string(tid))
		}
	}
	g := &Group{ID: gid, Name: name}
	for _, tid := range tabIDs {
		if prev := m.tabs[tid].GroupID; prev != "" {
			m.removeFromGroupLocked(tid, prev)
		}
		m.tabs[tid].GroupID = gid
		g.Tabs = append(g.Tabs, tid)
	}
	m.groups[gid] = g
	m.mu.Unlock()

	m.emit(Event{Kind: GroupCreated, GroupID: gid})
	return gid, nil
}

// AddToGroup replaces tab's group membership with group (tab and group
// must exist).
func (m *Manager) AddToGroup(tabID, groupID ID) error {
	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return aerrors.New(aerrors.NotFound, "tabs.add_to_group", "tab not found")
	}
	g, ok := m.groups[groupID]
	if !ok {
		m.mu.Unlock()
		return aerrors.New(aerrors.NotFound, "tabs.add_to_group", "group not found")
	}
	if t.GroupID != "" && t.GroupID != groupID {
		m.removeFromGroupLocked(tabID, t.GroupID)
	}
	t.GroupID = groupID
	if !containsID(g.Tabs, tabID) {
		g.Tabs = append(g.Tabs, tabID)
	}
	m.mu.Unlock()

	m.emit(Event{Kind: GroupMembership, TabID: tabID, GroupID: groupID})
	return nil
}

// RemoveFromGroup is a no-op if the tab is not in any group.
func (m *Manager) RemoveFromGroup(tabID ID) error {
	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return aerrors.New(aerrors.NotFound, "tabs.remove_from_group", "tab not found")
	}
	gid := t.GroupID
	if gid == "" {
		m.mu.Unlock()
		return nil
	}
	m.removeFromGroupLocked(tabID, gid)
	m.mu.Unlock()

	m.emit(Event{Kind: GroupMembership, TabID: tabID, GroupID: gid})
	return nil
}

func (m *Manager) removeFromGroupLocked(tabID, groupID ID) {
	if t, ok := m.tabs[tabID]; ok {
		t.GroupID = ""
	}
	if g, ok := m.groups[groupID]; ok {
		g.Tabs = removeID(g.Tabs, tabID)
	}
}

// DeleteGroup ungroups its members without closing them.
func (m *Manager) DeleteGroup(groupID ID) error {
	m.mu.Lock()
	g, ok := m.groups[groupID]
	if !ok {
		m.mu.Unlock()
		return aerrors.New(aerrors.NotFound, "tabs.delete_group", "group not found")
	}
	for _, tid := range g.Tabs {
		if t, ok := m.tabs[tid]; ok {
			t.GroupID = ""
		}
	}
	delete(m.groups, groupID)
	m.mu.Unlock()

	m.emit(Event{Kind: GroupDeleted, GroupID: groupID})
	return nil
}

// SetGroupCollapsed toggles a group's collapsed flag.
func (m *Manager) SetGroupCollapsed(groupID ID, collapsed bool) error {
	m.mu.Lock()
	g, ok := m.groups[groupID]
	if !ok {
		m.mu.Unlock()
		return aerrors.New(aerrors.NotFound, "tabs.set_group_collapsed", "group not found")
	}
	g.Collapsed = collapsed
	m.mu.Unlock()

	m.emit(Event{Kind: GroupCollapsed, GroupID: groupID, Payload: collapsed})
	return nil
}

// Group returns a copy of a group's current state.
func (m *Manager) Group(groupID ID) (Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[groupID]
	if !ok {
		return Group{}, aerrors.New(aerrors.NotFound, "tabs.group", "group not found")
	}
	cp := *g
	cp.Tabs = append([]ID(nil), g.Tabs...)
	return cp, nil
}

func containsID(ids []ID, target ID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
