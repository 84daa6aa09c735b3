package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/livecaphq/livecap/internal/capture"
	"github.com/livecaphq/livecap/internal/pipeline"
	"github.com/livecaphq/livecap/internal/relay"
	"github.com/livecaphq/livecap/internal/session"
	"github.com/livecaphq/livecap/internal/testutil"
)

const e2eTimeout = 5 * time.Second

func waitEvent(t *testing.T, events <-chan session.Event, kind session.EventKind) session.Event {
	t.Helper()
	deadline := time.After(e2eTimeout)
	for {
		select {
		case e := <-events:
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

// Full host/guest flow over a real relay server: join handshake, live
// caption fan-out from the capture pipeline, clear, and session end.
func TestHostGuestCaptionFlow(t *testing.T) {
	srv := httptest.NewServer(relay.NewServer())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionID := relay.NormalizeSessionID("E2E Flow")

	// Host side: coordinator plus a pipeline fed by a fake microphone.
	hostCh := relay.NewWSChannel(srv.URL, sessionID, "host-id")
	host := session.NewHost(hostCh, "host-id", nil)
	if err := host.Connect(ctx); err != nil {
		t.Fatalf("host connect: %v", err)
	}
	defer host.Close()

	source := testutil.NewMockFrameSource(16000)
	engine := capture.NewEngine(capture.EngineConfig{
		TargetRate:    16000,
		FlushInterval: 20 * time.Millisecond,
		PacketBuffer:  8,
	}, source)
	pipe := pipeline.New(engine, &testutil.MockClient{}, false)
	if err := pipe.Start(ctx); err != nil {
		t.Fatalf("pipeline start: %v", err)
	}

	go func() {
		for e := range pipe.Events() {
			if e.Kind == pipeline.EventTranscript {
				if err := host.PublishEntry(*e.Entry); err != nil {
					t.Errorf("publish entry: %v", err)
				}
			}
		}
	}()

	// Guest side.
	guestCh := relay.NewWSChannel(srv.URL, sessionID, "guest-id")
	guest := session.NewGuestNamed(guestCh, "guest-id", "alice", nil)
	if err := guest.Connect(ctx); err != nil {
		t.Fatalf("guest connect: %v", err)
	}
	defer guest.Close()

	if err := guest.RequestJoin(); err != nil {
		t.Fatalf("request join: %v", err)
	}

	e := waitEvent(t, host.Events(), session.EventGuestRequested)
	if e.Guest.DisplayName != "alice" {
		t.Errorf("display name = %q, want alice", e.Guest.DisplayName)
	}

	if err := host.Approve(); err != nil {
		t.Fatalf("approve: %v", err)
	}
	waitEvent(t, guest.Events(), session.EventApproved)

	// Live captions reach the connected guest.
	source.Push(testutil.SpeechFrame(320))
	entry := waitEvent(t, guest.Events(), session.EventEntry)
	if entry.Entry.Text != "mock transcription" {
		t.Errorf("entry text = %q", entry.Entry.Text)
	}
	if guest.Transcript().Len() != 1 {
		t.Errorf("guest transcript has %d entries, want 1", guest.Transcript().Len())
	}

	// Host clears, guest mirror empties.
	if err := host.ClearTranscript(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	waitEvent(t, guest.Events(), session.EventCleared)
	if guest.Transcript().Len() != 0 {
		t.Errorf("guest transcript not cleared: %d entries", guest.Transcript().Len())
	}

	// Shut down: pipeline first, then announce the end.
	pipe.Stop()
	if !source.Stopped() {
		t.Error("capture source not released after pipeline stop")
	}
	if err := host.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	waitEvent(t, guest.Events(), session.EventEnded)
	if guest.State() != session.StateIdle {
		t.Errorf("guest state after end = %s, want %s", guest.State(), session.StateIdle)
	}
}

// A second viewer asking while a request is pending is dropped; after the
// host resolves the first request the second viewer's retry goes through.
func TestSecondGuestWaitsForPendingDecision(t *testing.T) {
	srv := httptest.NewServer(relay.NewServer())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionID := relay.NormalizeSessionID("waiting-room")

	hostCh := relay.NewWSChannel(srv.URL, sessionID, "host-id")
	host := session.NewHost(hostCh, "host-id", nil)
	if err := host.Connect(ctx); err != nil {
		t.Fatalf("host connect: %v", err)
	}
	defer host.Close()

	first := session.NewGuestNamed(relay.NewWSChannel(srv.URL, sessionID, "guest-1"), "guest-1", "first", nil)
	if err := first.Connect(ctx); err != nil {
		t.Fatalf("first guest connect: %v", err)
	}
	defer first.Close()

	if err := first.RequestJoin(); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, host.Events(), session.EventGuestRequested)

	// Second request arrives while the first is pending and is ignored.
	second := session.NewGuestNamed(relay.NewWSChannel(srv.URL, sessionID, "guest-2"), "guest-2", "second", nil)
	if err := second.Connect(ctx); err != nil {
		t.Fatalf("second guest connect: %v", err)
	}
	defer second.Close()

	if err := second.RequestJoin(); err != nil {
		t.Fatal(err)
	}

	time.Sleep(700 * time.Millisecond) // past the settle delay
	if g := host.PendingGuest(); g == nil || g.ID != "guest-1" {
		t.Fatalf("pending guest = %+v, want guest-1", g)
	}

	if err := host.Approve(); err != nil {
		t.Fatalf("approve: %v", err)
	}
	waitEvent(t, first.Events(), session.EventApproved)
}
