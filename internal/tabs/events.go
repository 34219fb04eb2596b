package tabs

// EventKind names the Tab Manager's state-change events (spec §4.1).
type EventKind string

const (
	Created           EventKind = "Created"
	Closed            EventKind = "Closed"
	Activated         EventKind = "Activated"
	Deactivated       EventKind = "Deactivated"
	TitleChanged      EventKind = "TitleChanged"
	URLChanged        EventKind = "URLChanged"
	LoadingChanged    EventKind = "LoadingChanged"
	HistoryChanged    EventKind = "HistoryChanged"
	FaviconChanged    EventKind = "FaviconChanged"
	Reordered         EventKind = "Reordered"
	GroupCreated      EventKind = "GroupCreated"
	GroupDeleted      EventKind = "GroupDeleted"
	GroupMembership   EventKind = "GroupMembershipChanged"
	GroupCollapsed    EventKind = "GroupCollapsedChanged"
)

// Event is a single state-change notification, delivered to every
// registered Observer in emission order on the goroutine that caused
// the change (spec §5 ordering guarantee).
type Event struct {
	Kind  EventKind
	TabID ID
	// GroupID is set for group-scoped events.
	GroupID ID
	// Payload carries event-specific data (e.g. the new title/url/bool).
	Payload any
}

// Observer receives Tab Manager events. Implementations must not block
// or call back into the Manager synchronously (the Manager may be
// holding internal bookkeeping state when it emits).
type Observer interface {
	OnTabEvent(Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnTabEvent(e Event) { f(e) }
