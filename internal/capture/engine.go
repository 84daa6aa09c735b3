package capture

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/livecaphq/livecap/internal/audio"
)

// TargetSampleRate is the pipeline's fixed rate; every frame is resampled
// to it before accumulation.
const TargetSampleRate = 16000

// Packet is one flush interval's worth of accumulated audio, encoded as a
// WAV container ready for the transcription backend.
type Packet struct {
	WAV     []byte
	Samples int
}

// EngineConfig configures the accumulate/flush cadence.
type EngineConfig struct {
	TargetRate    int
	FlushInterval time.Duration
	Gate          audio.Gate // optional; nil disables silence gating
	PacketBuffer  int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TargetRate:    TargetSampleRate,
		FlushInterval: 3 * time.Second,
		Gate:          audio.FixedGate{Threshold: 0.005},
		PacketBuffer:  4,
	}
}

// Engine owns the capture lifecycle and the chunk-flush cadence. Incoming
// frames are resampled to the target rate and appended to an accumulation
// buffer; an independent ticker swaps the buffer out atomically and turns
// it into an encoded packet. Stop drains: the ticker is cancelled, the
// remaining audio is flushed synchronously, then the device is released.
type Engine struct {
	cfg    EngineConfig
	source FrameSource

	mu       sync.Mutex
	blocks   [][]float32
	buffered int

	packets chan Packet
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	startMu sync.Mutex
	running bool
}

func NewEngine(cfg EngineConfig, source FrameSource) *Engine {
	if cfg.TargetRate <= 0 {
		cfg.TargetRate = TargetSampleRate
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 3 * time.Second
	}
	if cfg.PacketBuffer <= 0 {
		cfg.PacketBuffer = 4
	}
	return &Engine{cfg: cfg, source: source}
}

// Start acquires the capture device and begins accumulating. Device
// acquisition failure aborts before any engine state is mutated.
func (e *Engine) Start(ctx context.Context) (<-chan Packet, <-chan error, error) {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.running {
		return nil, nil, fmt.Errorf("engine already running")
	}

	frameCh, srcErrCh, err := e.source.Start(ctx)
	if err != nil {
		return nil, nil, err
	}

	engineCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.packets = make(chan Packet, e.cfg.PacketBuffer)
	errCh := make(chan error, 1)
	e.running = true

	e.wg.Add(2)
	go e.accumulate(engineCtx, frameCh, srcErrCh, errCh)
	go e.flushLoop(engineCtx)

	return e.packets, errCh, nil
}

// Stop drains in order: cancel the ticker, flush any remaining buffered
// audio synchronously, release the capture device. No trailing speech is
// dropped and no flush fires after teardown begins.
func (e *Engine) Stop() error {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if !e.running {
		return nil
	}

	e.cancel()
	e.wg.Wait()

	e.flush()

	err := e.source.Stop()
	close(e.packets)
	e.running = false
	return err
}

func (e *Engine) accumulate(ctx context.Context, frameCh <-chan Frame, srcErrCh <-chan error, errCh chan<- error) {
	defer e.wg.Done()

	sourceRate := e.source.SampleRate()
	for {
		select {
		case <-ctx.Done():
			return

		case frame, ok := <-frameCh:
			if !ok {
				return
			}
			samples := audio.DecodePCM16(frame.Data)
			block := audio.Resample(samples, sourceRate, e.cfg.TargetRate)
			if c, ok := e.cfg.Gate.(audio.Calibrator); ok {
				// Per-frame calibration arms an adaptive gate after about
				// a second of capture, long before the first flush.
				c.Observe(block)
			}
			e.mu.Lock()
			e.blocks = append(e.blocks, block)
			e.buffered += len(block)
			e.mu.Unlock()

		case err, ok := <-srcErrCh:
			if !ok {
				continue
			}
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}
}

func (e *Engine) flushLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.flush()
		}
	}
}

// flush swaps the accumulation buffer out for an empty one, so audio
// arriving during processing lands in the fresh buffer, then flattens,
// gates and encodes the removed one.
func (e *Engine) flush() {
	e.mu.Lock()
	blocks := e.blocks
	total := e.buffered
	e.blocks = nil
	e.buffered = 0
	e.mu.Unlock()

	if total == 0 {
		return
	}

	flat := make([]float32, 0, total)
	for _, b := range blocks {
		flat = append(flat, b...)
	}

	if e.cfg.Gate != nil && e.cfg.Gate.Silent(flat) {
		log.Printf("capture: dropped silent chunk (%d samples)", total)
		return
	}

	packet := Packet{WAV: audio.EncodeWAV(flat, e.cfg.TargetRate), Samples: total}
	select {
	case e.packets <- packet:
	default:
		// The consumer is behind; dropping the oldest pending packet keeps
		// the stream live rather than increasingly delayed.
		select {
		case <-e.packets:
		default:
		}
		e.packets <- packet
	}
}

// Buffered returns the number of accumulated samples awaiting flush.
func (e *Engine) Buffered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffered
}
