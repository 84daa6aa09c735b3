package relay

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// guest dial retry cadence while the host's room is not yet open
const dialRetryInterval = 2 * time.Second

// WSChannel implements Channel over a websocket relay room server. The
// host opens the room under the session's well-known identifier; guests
// dial the same identifier, retrying with fixed backoff until the room
// exists or the channel is closed.
type WSChannel struct {
	serverURL string
	sessionID string
	selfID    string

	mu        sync.Mutex
	conn      *websocket.Conn
	onMessage MessageHandler
	connected bool
	closed    bool

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closeCh chan struct{}

	retryInterval time.Duration
}

// NewWSChannel creates an unconnected channel for the given session.
// serverURL is the relay server base URL (http, https, ws or wss scheme).
func NewWSChannel(serverURL, sessionID, selfID string) *WSChannel {
	return &WSChannel{
		serverURL:     strings.TrimRight(serverURL, "/"),
		sessionID:     NormalizeSessionID(sessionID),
		selfID:        selfID,
		closeCh:       make(chan struct{}),
		retryInterval: dialRetryInterval,
	}
}

func (c *WSChannel) Connect(ctx context.Context, role Role, onMessage MessageHandler) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("ws channel: already closed")
	}
	if c.connected {
		c.mu.Unlock()
		return fmt.Errorf("ws channel: already connected")
	}
	c.mu.Unlock()

	wsURL, err := c.buildURL(role)
	if err != nil {
		return fmt.Errorf("ws channel: build url: %w", err)
	}

	dialCtx, cancel := context.WithCancel(ctx)

	conn, err := c.dial(dialCtx, wsURL, role)
	if err != nil {
		cancel()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		conn.Close()
		return fmt.Errorf("ws channel: closed during connect")
	}
	c.conn = conn
	c.onMessage = onMessage
	c.connected = true
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(conn)

	log.Printf("relay: connected to %s as %s", c.sessionID, role)
	return nil
}

// dial attempts the websocket handshake. Guests retry with fixed backoff
// while the host has not opened the room yet; the host fails fast so the
// caller can surface the error.
func (c *WSChannel) dial(ctx context.Context, wsURL string, role Role) (*websocket.Conn, error) {
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			return conn, nil
		}
		if role == RoleHost {
			return nil, fmt.Errorf("ws channel: dial %s: %w", wsURL, err)
		}

		log.Printf("relay: session %s not reachable yet, retrying in %v", c.sessionID, c.retryInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.closeCh:
			return nil, fmt.Errorf("ws channel: closed while dialing")
		case <-time.After(c.retryInterval):
		}
	}
}

func (c *WSChannel) buildURL(role Role) (string, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/session/" + c.sessionID
	q := u.Query()
	q.Set("role", string(role))
	q.Set("peer", c.selfID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *WSChannel) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Printf("relay: read error on %s: %v", c.sessionID, err)
			}
			return
		}
		if m.SenderID == c.selfID {
			continue
		}

		c.mu.Lock()
		handler := c.onMessage
		c.mu.Unlock()
		if handler != nil {
			handler(m)
		}
	}
}

func (c *WSChannel) Send(m Message) error {
	if m.SenderID == "" {
		m.SenderID = c.selfID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.closed || c.conn == nil {
		return fmt.Errorf("ws channel: not connected")
	}
	if err := c.conn.WriteJSON(m); err != nil {
		return fmt.Errorf("ws channel: write: %w", err)
	}
	return nil
}

func (c *WSChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.conn = nil
	cancel := c.cancel
	close(c.closeCh)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	c.wg.Wait()
	return nil
}
