package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/livecaphq/livecap/internal/audio"
	"github.com/livecaphq/livecap/internal/capture"
	"github.com/livecaphq/livecap/internal/transcribe"
)

type fakeSource struct {
	frames chan capture.Frame
	errs   chan error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		frames: make(chan capture.Frame, 64),
		errs:   make(chan error, 1),
	}
}

func (s *fakeSource) Start(ctx context.Context) (<-chan capture.Frame, <-chan error, error) {
	return s.frames, s.errs, nil
}

func (s *fakeSource) Stop() error     { return nil }
func (s *fakeSource) SampleRate() int { return 16000 }

func (s *fakeSource) pushSpeech(n int) {
	block := make([]float32, n)
	for i := range block {
		block[i] = 0.3
	}
	s.frames <- capture.Frame{Data: audio.EncodePCM16(block), Timestamp: time.Now()}
}

// scriptedClient returns canned replies in call order.
type scriptedClient struct {
	calls   atomic.Int32
	replies []func() (string, error)
}

func (c *scriptedClient) Transcribe(ctx context.Context, wav []byte) (string, error) {
	i := int(c.calls.Add(1)) - 1
	if i >= len(c.replies) {
		return "", nil
	}
	return c.replies[i]()
}

func reply(text string, err error) func() (string, error) {
	return func() (string, error) { return text, err }
}

func newTestPipeline(client transcribe.Client) (*Pipeline, *fakeSource) {
	source := newFakeSource()
	engine := capture.NewEngine(capture.EngineConfig{
		TargetRate:    16000,
		FlushInterval: 15 * time.Millisecond,
		PacketBuffer:  8,
	}, source)
	return New(engine, client, false), source
}

func collectUntil(t *testing.T, events <-chan Event, stop func(Event) bool) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(3 * time.Second)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, e)
			if stop(e) {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out, events so far: %+v", got)
		}
	}
}

func TestPipelineEmitsTranscript(t *testing.T) {
	client := &scriptedClient{replies: []func() (string, error){reply("hello viewers", nil)}}
	p, source := newTestPipeline(client)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	source.pushSpeech(320)

	events := collectUntil(t, p.Events(), func(e Event) bool { return e.Kind == EventTranscript })

	if events[0].Kind != EventConnected {
		t.Errorf("first event: expected %s, got %s", EventConnected, events[0].Kind)
	}

	var sawReady bool
	for _, e := range events {
		if e.Kind == EventReady {
			sawReady = true
		}
		if e.Kind == EventTranscript {
			if !sawReady {
				t.Error("ready latch did not fire before first transcript")
			}
			if e.Entry == nil || e.Entry.Text != "hello viewers" {
				t.Errorf("unexpected entry: %+v", e.Entry)
			}
		}
	}
}

func TestPipelineWhitespaceReplyProducesNoEntry(t *testing.T) {
	client := &scriptedClient{replies: []func() (string, error){
		reply("  ", nil),
		reply("real words", nil),
	}}
	p, source := newTestPipeline(client)

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	source.pushSpeech(320)
	time.Sleep(40 * time.Millisecond) // let the first chunk flush alone
	source.pushSpeech(320)

	events := collectUntil(t, p.Events(), func(e Event) bool { return e.Kind == EventTranscript })

	var entries int
	for _, e := range events {
		if e.Kind == EventTranscript {
			entries++
			if e.Entry.Text != "real words" {
				t.Errorf("unexpected entry text: %q", e.Entry.Text)
			}
		}
	}
	if entries != 1 {
		t.Errorf("expected 1 entry, got %d", entries)
	}
}

func TestPipelineWarmupSignal(t *testing.T) {
	client := &scriptedClient{replies: []func() (string, error){
		reply("", &transcribe.WarmupError{Message: "loading"}),
	}}
	p, source := newTestPipeline(client)

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	source.pushSpeech(320)

	events := collectUntil(t, p.Events(), func(e Event) bool { return e.Kind == EventWarmup })
	last := events[len(events)-1]
	if last.Kind != EventWarmup {
		t.Fatalf("expected warmup event, got %s", last.Kind)
	}
	if p.Status() != Warming {
		t.Errorf("expected %s status, got %s", Warming, p.Status())
	}
}

func TestPipelineAuthErrorIsFatal(t *testing.T) {
	client := &scriptedClient{replies: []func() (string, error){
		reply("", &transcribe.AuthError{Status: 401}),
	}}
	p, source := newTestPipeline(client)

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	source.pushSpeech(320)

	events := collectUntil(t, p.Events(), func(e Event) bool { return e.Kind == EventError })
	last := events[len(events)-1]
	if !transcribe.IsAuthError(last.Err) {
		t.Errorf("expected AuthError in event, got %v", last.Err)
	}

	// The pipeline disconnects itself; the event stream closes.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-p.Events():
			if !ok {
				if p.Status() != Idle {
					t.Errorf("expected %s after fatal error, got %s", Idle, p.Status())
				}
				return
			}
		case <-deadline:
			t.Fatal("event stream not closed after fatal auth error")
		}
	}
}

func TestPipelineLateEmitAfterStopIsDropped(t *testing.T) {
	p, _ := newTestPipeline(&scriptedClient{})

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.Stop()

	// A transcription reply racing Stop must be dropped, not panic on the
	// closed stream.
	p.emit(Event{Kind: EventWarmup})

	for e := range p.Events() {
		if e.Kind == EventWarmup {
			t.Error("late event delivered after stop")
		}
	}
	if p.Status() != Idle {
		t.Errorf("status = %s, want %s", p.Status(), Idle)
	}
}

func TestPipelineRepliesEmittedInSendOrder(t *testing.T) {
	// The first chunk's reply arrives after the second's; entries must
	// still come out in send order.
	client := &scriptedClient{replies: []func() (string, error){
		func() (string, error) {
			time.Sleep(80 * time.Millisecond)
			return "first", nil
		},
		reply("second", nil),
	}}
	p, source := newTestPipeline(client)

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	source.pushSpeech(320)
	time.Sleep(40 * time.Millisecond)
	source.pushSpeech(320)

	var texts []string
	collectUntil(t, p.Events(), func(e Event) bool {
		if e.Kind == EventTranscript {
			texts = append(texts, e.Entry.Text)
		}
		return len(texts) == 2
	})

	if texts[0] != "first" || texts[1] != "second" {
		t.Errorf("entries out of send order: %v", texts)
	}
}
