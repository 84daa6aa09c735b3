package relay

import (
	"context"
	"strings"
	"unicode"
)

// Role distinguishes the session owner from viewers on a channel.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// MessageHandler receives every message authored by another participant.
// Handlers run on the channel's reader goroutine and must not block.
type MessageHandler func(Message)

// Channel is a bidirectional pub/sub transport keyed by a normalized
// session identifier. One host and any number of guests share a session.
// Delivery is at-least-once; ordering holds only per sender-to-receiver
// path, never globally across senders.
type Channel interface {
	// Connect joins the session and starts delivering inbound messages to
	// onMessage. It is an error to connect a channel twice.
	Connect(ctx context.Context, role Role, onMessage MessageHandler) error
	// Send broadcasts a message to all currently known peers.
	Send(m Message) error
	// Close releases all peer resources and cancels any pending retries.
	Close() error
}

// SessionPrefix namespaces session identifiers on shared public relays.
const SessionPrefix = "livecap-"

// NormalizeSessionID lowercases a user-typed session id, strips every
// non-alphanumeric rune, and prepends the fixed namespace prefix. It is
// idempotent: an already normalized id passes through unchanged, so CLI
// display code and the channel constructors can both apply it without
// mangling the wire identifier.
func NormalizeSessionID(raw string) string {
	raw = strings.TrimPrefix(strings.ToLower(raw), SessionPrefix)
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return SessionPrefix + b.String()
}
