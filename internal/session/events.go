package session

import "github.com/livecaphq/livecap/internal/transcript"

// EventKind tags coordinator events. The coordinator surfaces protocol
// activity through a single event stream instead of injected callbacks.
type EventKind string

const (
	// host side
	EventGuestRequested EventKind = "guest-requested"
	EventGuestConnected EventKind = "guest-connected"
	EventGuestRejected  EventKind = "guest-rejected"

	// guest side
	EventApproved EventKind = "approved"
	EventRejected EventKind = "rejected"
	EventEntry    EventKind = "entry"
	EventCleared  EventKind = "cleared"
	EventEnded    EventKind = "ended"
)

// Event is one coordinator occurrence. Guest is set for the guest-* kinds,
// Entry for EventEntry.
type Event struct {
	Kind  EventKind
	Guest *Guest
	Entry *transcript.Entry
}

// GuestStatus is the host-side view of a viewer's join state. The only
// legal transitions are pending to connected and pending to rejected.
type GuestStatus string

const (
	GuestPending   GuestStatus = "pending"
	GuestConnected GuestStatus = "connected"
	GuestRejected  GuestStatus = "rejected"
)

// Guest is a viewer known to the host.
type Guest struct {
	ID          string
	DisplayName string
	Status      GuestStatus
}

// State is the guest-side join state machine position.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateConnected  State = "connected"
	StateRejected   State = "rejected"
)
