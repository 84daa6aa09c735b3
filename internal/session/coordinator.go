package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/livecaphq/livecap/internal/relay"
	"github.com/livecaphq/livecap/internal/transcript"
)

// settle delay before a guest sends its join request, giving the channel
// time to finish connecting on slower relays
const defaultSettleDelay = 500 * time.Millisecond

const eventBufferSize = 32

// Coordinator layers the join handshake and transcript fan-out protocol on
// a relay.Channel. A host coordinator approves or rejects one pending join
// request at a time and broadcasts its transcript; a guest coordinator
// walks idle -> requesting -> connected|rejected and mirrors the host's
// transcript while connected.
type Coordinator struct {
	role        relay.Role
	selfID      string
	displayName string
	channel     relay.Channel
	log         *transcript.Log

	events chan Event

	mu sync.Mutex
	// host state
	pending *Guest
	guests  []Guest
	// guest state
	state       State
	settleTimer *time.Timer
	closed      bool

	settleDelay time.Duration
}

func NewHost(channel relay.Channel, selfID string, tlog *transcript.Log) *Coordinator {
	return newCoordinator(relay.RoleHost, channel, selfID, tlog)
}

func NewGuest(channel relay.Channel, selfID string, tlog *transcript.Log) *Coordinator {
	return newCoordinator(relay.RoleGuest, channel, selfID, tlog)
}

// NewGuestNamed is NewGuest with a display name shown to the host on the
// join request.
func NewGuestNamed(channel relay.Channel, selfID, displayName string, tlog *transcript.Log) *Coordinator {
	c := newCoordinator(relay.RoleGuest, channel, selfID, tlog)
	c.displayName = displayName
	return c
}

func newCoordinator(role relay.Role, channel relay.Channel, selfID string, tlog *transcript.Log) *Coordinator {
	if tlog == nil {
		tlog = transcript.NewLog()
	}
	return &Coordinator{
		role:        role,
		selfID:      selfID,
		channel:     channel,
		log:         tlog,
		events:      make(chan Event, eventBufferSize),
		state:       StateIdle,
		settleDelay: defaultSettleDelay,
	}
}

// Connect joins the session channel and starts handling protocol messages.
func (c *Coordinator) Connect(ctx context.Context) error {
	return c.channel.Connect(ctx, c.role, c.handleMessage)
}

// Events returns the coordinator's event stream.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Transcript returns the coordinator's transcript log.
func (c *Coordinator) Transcript() *transcript.Log {
	return c.log
}

// Close cancels any pending settle timer and releases the channel.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
	c.mu.Unlock()
	return c.channel.Close()
}

func (c *Coordinator) emit(e Event) {
	select {
	case c.events <- e:
	default:
		log.Printf("session: event buffer full, dropping %s", e.Kind)
	}
}

func (c *Coordinator) handleMessage(m relay.Message) {
	switch c.role {
	case relay.RoleHost:
		c.handleHostMessage(m)
	case relay.RoleGuest:
		c.handleGuestMessage(m)
	}
}

// --- host side ---

func (c *Coordinator) handleHostMessage(m relay.Message) {
	switch m.Type {
	case relay.JoinRequest:
		p, err := relay.DecodeJoinRequest(m)
		if err != nil {
			log.Printf("session: dropping malformed %s: %v", m.Type, err)
			return
		}
		c.mu.Lock()
		if c.pending != nil {
			// One request at a time; later requests are dropped until the
			// host resolves the current one, and the guest's retry covers
			// the rest.
			c.mu.Unlock()
			log.Printf("session: join request from %s ignored, another is pending", p.GuestID)
			return
		}
		g := Guest{ID: p.GuestID, DisplayName: displayName(p), Status: GuestPending}
		c.pending = &g
		c.mu.Unlock()
		c.emit(Event{Kind: EventGuestRequested, Guest: &g})

	default:
		// Hosts originate transcript traffic; anything else from guests is
		// not part of the protocol.
		log.Printf("session: host ignoring %s", m.Type)
	}
}

func displayName(p relay.JoinRequestPayload) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	id := p.GuestID
	if len(id) > 8 {
		id = id[:8]
	}
	return "guest-" + id
}

// Approve accepts the pending join request, marks the guest connected and
// notifies it.
func (c *Coordinator) Approve() error {
	return c.decide(true)
}

// Reject declines the pending join request.
func (c *Coordinator) Reject() error {
	return c.decide(false)
}

func (c *Coordinator) decide(approve bool) error {
	if c.role != relay.RoleHost {
		return fmt.Errorf("session: only the host decides join requests")
	}

	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return fmt.Errorf("session: no pending join request")
	}
	g := *c.pending
	c.pending = nil
	if approve {
		g.Status = GuestConnected
		c.guests = append(c.guests, g)
	} else {
		g.Status = GuestRejected
	}
	c.mu.Unlock()

	var m relay.Message
	var kind EventKind
	if approve {
		m = relay.NewJoinApproved(c.selfID, g.ID)
		kind = EventGuestConnected
	} else {
		m = relay.NewJoinRejected(c.selfID, g.ID)
		kind = EventGuestRejected
	}
	if err := c.channel.Send(m); err != nil {
		return fmt.Errorf("session: send decision: %w", err)
	}
	c.emit(Event{Kind: kind, Guest: &g})
	return nil
}

// PendingGuest returns the join request awaiting a decision, if any.
func (c *Coordinator) PendingGuest() *Guest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	g := *c.pending
	return &g
}

// Guests returns the host's connected guest list.
func (c *Coordinator) Guests() []Guest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Guest, len(c.guests))
	copy(out, c.guests)
	return out
}

// PublishEntry appends a locally produced entry to the host transcript and
// broadcasts it to all connected guests.
func (c *Coordinator) PublishEntry(e transcript.Entry) error {
	if c.role != relay.RoleHost {
		return fmt.Errorf("session: only the host publishes entries")
	}
	c.log.Append(e)
	if err := c.channel.Send(relay.NewTranscriptUpdate(c.selfID, e)); err != nil {
		return fmt.Errorf("session: broadcast entry: %w", err)
	}
	return nil
}

// ClearTranscript empties the host transcript and broadcasts the clear.
func (c *Coordinator) ClearTranscript() error {
	if c.role != relay.RoleHost {
		return fmt.Errorf("session: only the host clears the transcript")
	}
	c.log.Clear()
	if err := c.channel.Send(relay.NewTranscriptClear(c.selfID)); err != nil {
		return fmt.Errorf("session: broadcast clear: %w", err)
	}
	return nil
}

// End announces the end of the session to all guests.
func (c *Coordinator) End() error {
	if c.role != relay.RoleHost {
		return fmt.Errorf("session: only the host ends the session")
	}
	if err := c.channel.Send(relay.NewSessionEnded(c.selfID)); err != nil {
		return fmt.Errorf("session: broadcast end: %w", err)
	}
	return nil
}

// --- guest side ---

// RequestJoin moves an idle guest to requesting and, after the settle
// delay, sends the join request with the guest's persistent id.
func (c *Coordinator) RequestJoin() error {
	if c.role != relay.RoleGuest {
		return fmt.Errorf("session: only guests request to join")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("session: coordinator closed")
	}
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("session: cannot request join from %s", state)
	}
	c.state = StateRequesting
	c.settleTimer = time.AfterFunc(c.settleDelay, c.sendJoinRequest)
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) sendJoinRequest() {
	c.mu.Lock()
	if c.closed || c.state != StateRequesting {
		c.mu.Unlock()
		return
	}
	c.settleTimer = nil
	c.mu.Unlock()

	if err := c.channel.Send(relay.NewJoinRequest(c.selfID, c.displayName)); err != nil {
		log.Printf("session: send join request: %v", err)
	}
}

// Retry returns a rejected guest to idle and immediately requests again.
func (c *Coordinator) Retry() error {
	if c.role != relay.RoleGuest {
		return fmt.Errorf("session: only guests retry")
	}

	c.mu.Lock()
	if c.state != StateRejected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("session: cannot retry from %s", state)
	}
	c.state = StateIdle
	c.mu.Unlock()

	return c.RequestJoin()
}

// State returns the guest-side state machine position.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) handleGuestMessage(m relay.Message) {
	switch m.Type {
	case relay.JoinApproved:
		if _, err := relay.DecodeJoinDecision(m); err != nil {
			log.Printf("session: dropping malformed %s: %v", m.Type, err)
			return
		}
		c.mu.Lock()
		if c.state != StateRequesting {
			c.mu.Unlock()
			return
		}
		// Any approval observed while requesting is accepted; the guestId
		// is deliberately not matched against the local identity. With a
		// single pending request per host this is safe; concurrent
		// multi-guest joins could misdeliver an approval.
		c.state = StateConnected
		c.mu.Unlock()
		c.emit(Event{Kind: EventApproved})

	case relay.JoinRejected:
		if _, err := relay.DecodeJoinDecision(m); err != nil {
			log.Printf("session: dropping malformed %s: %v", m.Type, err)
			return
		}
		c.mu.Lock()
		if c.state != StateRequesting {
			c.mu.Unlock()
			return
		}
		c.state = StateRejected
		c.mu.Unlock()
		c.emit(Event{Kind: EventRejected})

	case relay.TranscriptUpdate:
		if c.State() != StateConnected {
			return
		}
		p, err := relay.DecodeTranscriptUpdate(m)
		if err != nil {
			log.Printf("session: dropping malformed %s: %v", m.Type, err)
			return
		}
		c.log.Append(p.Entry)
		entry := p.Entry
		c.emit(Event{Kind: EventEntry, Entry: &entry})

	case relay.TranscriptClear:
		if c.State() != StateConnected {
			return
		}
		c.log.Clear()
		c.emit(Event{Kind: EventCleared})

	case relay.SessionEnded:
		// Forces idle from any state and drops the mirrored transcript.
		c.mu.Lock()
		if c.settleTimer != nil {
			c.settleTimer.Stop()
			c.settleTimer = nil
		}
		c.state = StateIdle
		c.mu.Unlock()
		c.log.Clear()
		c.emit(Event{Kind: EventEnded})

	default:
		log.Printf("session: guest ignoring %s", m.Type)
	}
}
