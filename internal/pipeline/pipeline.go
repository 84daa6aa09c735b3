package pipeline

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/livecaphq/livecap/internal/capture"
	"github.com/livecaphq/livecap/internal/transcribe"
	"github.com/livecaphq/livecap/internal/transcript"
)

type Status string

const (
	Idle      Status = "idle"
	Capturing Status = "capturing"
	Warming   Status = "warming"
	Ready     Status = "ready"
)

// EventKind tags pipeline events. Stages report outcomes through one event
// stream instead of injected callbacks.
type EventKind string

const (
	EventConnected  EventKind = "connected"  // capture started
	EventWarmup     EventKind = "warmup"     // backend still loading
	EventReady      EventKind = "ready"      // first non-empty transcription arrived
	EventTranscript EventKind = "transcript" // new entry
	EventError      EventKind = "error"      // fatal failure, pipeline stopping
)

type Event struct {
	Kind  EventKind
	Entry *transcript.Entry
	Err   error
}

const eventBufferSize = 32

// Pipeline drives capture packets through the transcription client and
// emits transcript entries. Requests are posted without waiting for the
// prior reply; replies are put back into send order with a per-chunk
// sequence number before entries are emitted.
type Pipeline struct {
	engine *capture.Engine
	client transcribe.Client

	events chan Event

	mu       sync.Mutex
	status   Status
	ready    bool // one-shot latch
	stopping bool
	closed   bool // event stream closed, late emits dropped
	seq      int
	next     int
	pending  map[int]string // seq -> transcribed text, "" for gaps

	preroll bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
	postWG sync.WaitGroup
}

func New(engine *capture.Engine, client transcribe.Client, preroll bool) *Pipeline {
	return &Pipeline{
		engine:  engine,
		client:  client,
		preroll: preroll,
		status:  Idle,
		events:  make(chan Event, eventBufferSize),
		pending: make(map[int]string),
	}
}

func (p *Pipeline) Events() <-chan Event {
	return p.events
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Start acquires the capture device and begins streaming. A device
// acquisition failure aborts before any pipeline state changes.
func (p *Pipeline) Start(ctx context.Context) error {
	packets, errCh, err := p.engine.Start(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.cancel = cancel
	p.status = Capturing
	p.mu.Unlock()

	p.emit(Event{Kind: EventConnected})

	if p.preroll {
		// Pre-warm the backend before live audio arrives; a failed
		// pre-roll is a warm-up signal, not an error.
		p.postWG.Add(1)
		go func() {
			defer p.postWG.Done()
			if !transcribe.Preroll(runCtx, p.client, capture.TargetSampleRate) {
				p.noteWarmup()
			}
		}()
	}

	p.wg.Add(1)
	go p.run(runCtx, packets, errCh)
	return nil
}

// Stop drains the engine (final synchronous flush included), waits for
// in-flight transcriptions, then closes the event stream.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.status == Idle || p.stopping {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	p.mu.Unlock()

	p.engine.Stop() // closes the packet channel after the drain flush
	p.wg.Wait()
	p.postWG.Wait()

	p.mu.Lock()
	p.status = Idle
	p.stopping = false
	p.closed = true
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	close(p.events)
}

func (p *Pipeline) run(ctx context.Context, packets <-chan capture.Packet, errCh <-chan error) {
	defer p.wg.Done()

	for {
		select {
		case packet, ok := <-packets:
			if !ok {
				return
			}
			p.mu.Lock()
			seq := p.seq
			p.seq++
			p.mu.Unlock()

			p.postWG.Add(1)
			go p.post(ctx, seq, packet)

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				log.Printf("pipeline: capture error: %v", err)
			}
		}
	}
}

// post sends one packet and feeds the reply into the reorder buffer.
func (p *Pipeline) post(ctx context.Context, seq int, packet capture.Packet) {
	defer p.postWG.Done()

	text, err := p.client.Transcribe(ctx, packet.WAV)
	if err != nil {
		switch {
		case transcribe.IsAuthError(err):
			// Fatal: disconnect capture and surface the error.
			p.emit(Event{Kind: EventError, Err: err})
			go p.Stop()
			p.resolve(seq, "")
			return
		case transcribe.IsWarmupError(err):
			p.noteWarmup()
			p.resolve(seq, "")
			return
		default:
			// Transient; the chunk is lost by design, the next one carries
			// new audio.
			log.Printf("pipeline: transcription failed: %v", err)
			p.resolve(seq, "")
			return
		}
	}

	p.resolve(seq, text)
}

// resolve records a reply and emits every consecutive completed chunk in
// send order. Empty or whitespace-only replies fill their slot without
// producing an entry.
func (p *Pipeline) resolve(seq int, text string) {
	var emits []transcript.Entry

	p.mu.Lock()
	p.pending[seq] = text
	for {
		t, ok := p.pending[p.next]
		if !ok {
			break
		}
		delete(p.pending, p.next)
		p.next++
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			emits = append(emits, transcript.NewEntry(transcript.SenderSpeaker, trimmed))
		}
	}
	first := false
	if len(emits) > 0 && !p.ready {
		p.ready = true
		p.status = Ready
		first = true
	}
	p.mu.Unlock()

	if first {
		p.emit(Event{Kind: EventReady})
	}
	for i := range emits {
		entry := emits[i]
		p.emit(Event{Kind: EventTranscript, Entry: &entry})
	}
}

func (p *Pipeline) noteWarmup() {
	p.mu.Lock()
	if p.status == Capturing {
		p.status = Warming
	}
	p.mu.Unlock()
	p.emit(Event{Kind: EventWarmup})
}

// emit never blocks: the send runs under the mutex so Stop cannot close
// the stream mid-send, and a full buffer drops the event.
func (p *Pipeline) emit(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Printf("pipeline: dropped %s event after shutdown", e.Kind)
		return
	}
	select {
	case p.events <- e:
	default:
		log.Printf("pipeline: event buffer full, dropping %s", e.Kind)
	}
}
