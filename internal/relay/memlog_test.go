package relay

import (
	"context"
	"sync"
	"testing"
)

type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) handle(m Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *recorder) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func TestLogBrokerFanOut(t *testing.T) {
	broker := NewLogBroker()
	ctx := context.Background()

	host := broker.Channel("room", "host-1")
	guestA := broker.Channel("room", "guest-a")
	guestB := broker.Channel("room", "guest-b")

	var recHost, recA, recB recorder
	if err := host.Connect(ctx, RoleHost, recHost.handle); err != nil {
		t.Fatalf("host connect: %v", err)
	}
	if err := guestA.Connect(ctx, RoleGuest, recA.handle); err != nil {
		t.Fatalf("guest a connect: %v", err)
	}
	if err := guestB.Connect(ctx, RoleGuest, recB.handle); err != nil {
		t.Fatalf("guest b connect: %v", err)
	}

	if err := host.Send(NewTranscriptClear("host-1")); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Both guests observe the append; the host filters its own message.
	if got := len(recA.messages()); got != 1 {
		t.Errorf("guest a: expected 1 message, got %d", got)
	}
	if got := len(recB.messages()); got != 1 {
		t.Errorf("guest b: expected 1 message, got %d", got)
	}
	if got := len(recHost.messages()); got != 0 {
		t.Errorf("host: expected own message filtered, got %d", got)
	}
}

func TestLogBrokerSessionIsolation(t *testing.T) {
	broker := NewLogBroker()
	ctx := context.Background()

	a := broker.Channel("room-one", "a")
	b := broker.Channel("room-two", "b")

	var recB recorder
	if err := a.Connect(ctx, RoleHost, func(Message) {}); err != nil {
		t.Fatal(err)
	}
	if err := b.Connect(ctx, RoleHost, recB.handle); err != nil {
		t.Fatal(err)
	}

	if err := a.Send(NewSessionEnded("a")); err != nil {
		t.Fatal(err)
	}

	if got := len(recB.messages()); got != 0 {
		t.Errorf("message leaked across sessions: got %d", got)
	}
}

func TestLogChannelSendOrderPreserved(t *testing.T) {
	broker := NewLogBroker()
	ctx := context.Background()

	host := broker.Channel("room", "host")
	guest := broker.Channel("room", "guest")

	var rec recorder
	if err := host.Connect(ctx, RoleHost, func(Message) {}); err != nil {
		t.Fatal(err)
	}
	if err := guest.Connect(ctx, RoleGuest, rec.handle); err != nil {
		t.Fatal(err)
	}

	types := []MessageType{TranscriptClear, SessionEnded, TranscriptClear}
	for _, mt := range types {
		if err := host.Send(Message{Type: mt, SenderID: "host"}); err != nil {
			t.Fatal(err)
		}
	}

	got := rec.messages()
	if len(got) != len(types) {
		t.Fatalf("expected %d messages, got %d", len(types), len(got))
	}
	for i, mt := range types {
		if got[i].Type != mt {
			t.Errorf("message %d: expected %s, got %s", i, mt, got[i].Type)
		}
	}
}

func TestLogChannelLifecycle(t *testing.T) {
	broker := NewLogBroker()
	ctx := context.Background()
	c := broker.Channel("room", "x")

	if err := c.Send(Message{Type: TranscriptClear}); err == nil {
		t.Error("send before connect: expected error")
	}

	if err := c.Connect(ctx, RoleHost, func(Message) {}); err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(ctx, RoleHost, func(Message) {}); err == nil {
		t.Error("double connect: expected error")
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if err := c.Send(Message{Type: TranscriptClear}); err == nil {
		t.Error("send after close: expected error")
	}
}
