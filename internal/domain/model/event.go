package model

// EventKind identifies a notification delivered to an extension session.
type EventKind int

const (
	// EventNavigation reports a URL change in the host page.
	EventNavigation EventKind = iota
	// EventDOMChange reports that the host replaced or added file rows.
	EventDOMChange
	// EventCredentialAdded reports that authentication completed.
	EventCredentialAdded
	// EventCredentialRemoved reports that authentication was cleared.
	EventCredentialRemoved
	// EventCredentialChanged reports that the stored token was replaced.
	EventCredentialChanged
	// EventTeardown reports that the host page is going away.
	EventTeardown
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventNavigation:
		return "navigation"
	case EventDOMChange:
		return "dom_change"
	case EventCredentialAdded:
		return "credential_added"
	case EventCredentialRemoved:
		return "credential_removed"
	case EventCredentialChanged:
		return "credential_changed"
	case EventTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// Event is a single notification from the host environment.
type Event struct {
	Kind EventKind
	URL  string // Set for EventNavigation.
}
