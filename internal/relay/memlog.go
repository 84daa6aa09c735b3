package relay

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// LogBroker is the in-process variant of the session transport: a shared
// append-only message log per session. Every participant appends to the
// log and observes newly appended entries, filtering out messages it
// authored itself. Used for single-process sessions and tests.
type LogBroker struct {
	mu       sync.Mutex
	sessions map[string]*sessionLog
}

type sessionLog struct {
	entries []Message
	subs    map[*LogChannel]struct{}
}

func NewLogBroker() *LogBroker {
	return &LogBroker{sessions: make(map[string]*sessionLog)}
}

// Channel returns an unconnected channel for the given session, keyed by
// the participant's sender id so its own appends can be filtered out.
func (b *LogBroker) Channel(sessionID, selfID string) *LogChannel {
	return &LogChannel{broker: b, sessionID: NormalizeSessionID(sessionID), selfID: selfID}
}

func (b *LogBroker) session(id string) *sessionLog {
	if s, ok := b.sessions[id]; ok {
		return s
	}
	s := &sessionLog{subs: make(map[*LogChannel]struct{})}
	b.sessions[id] = s
	return s
}

func (b *LogBroker) append(sessionID string, m Message) {
	b.mu.Lock()
	s := b.session(sessionID)
	s.entries = append(s.entries, m)
	subs := make([]*LogChannel, 0, len(s.subs))
	for c := range s.subs {
		subs = append(subs, c)
	}
	b.mu.Unlock()

	for _, c := range subs {
		c.deliver(m)
	}
}

func (b *LogBroker) subscribe(c *LogChannel) {
	b.mu.Lock()
	b.session(c.sessionID).subs[c] = struct{}{}
	b.mu.Unlock()
}

func (b *LogBroker) unsubscribe(c *LogChannel) {
	b.mu.Lock()
	if s, ok := b.sessions[c.sessionID]; ok {
		delete(s.subs, c)
	}
	b.mu.Unlock()
}

// LogChannel implements Channel on top of a LogBroker.
type LogChannel struct {
	broker    *LogBroker
	sessionID string
	selfID    string

	mu        sync.Mutex
	onMessage MessageHandler
	connected bool
	closed    bool
}

func (c *LogChannel) Connect(ctx context.Context, role Role, onMessage MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("log channel: already closed")
	}
	if c.connected {
		return fmt.Errorf("log channel: already connected")
	}
	c.onMessage = onMessage
	c.connected = true
	c.broker.subscribe(c)
	log.Printf("relay: joined session log %s as %s", c.sessionID, role)
	return nil
}

func (c *LogChannel) Send(m Message) error {
	c.mu.Lock()
	if !c.connected || c.closed {
		c.mu.Unlock()
		return fmt.Errorf("log channel: not connected")
	}
	c.mu.Unlock()

	if m.SenderID == "" {
		m.SenderID = c.selfID
	}
	c.broker.append(c.sessionID, m)
	return nil
}

func (c *LogChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	c.broker.unsubscribe(c)
	return nil
}

func (c *LogChannel) deliver(m Message) {
	// Append-only log semantics: subscribers see every append, including
	// their own, and drop self-authored entries here.
	if m.SenderID == c.selfID {
		return
	}
	c.mu.Lock()
	handler := c.onMessage
	connected := c.connected
	c.mu.Unlock()
	if connected && handler != nil {
		handler(m)
	}
}
