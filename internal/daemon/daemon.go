package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/livecaphq/livecap/internal/bus"
	"github.com/livecaphq/livecap/internal/capture"
	"github.com/livecaphq/livecap/internal/config"
	"github.com/livecaphq/livecap/internal/notify"
	"github.com/livecaphq/livecap/internal/pipeline"
	"github.com/livecaphq/livecap/internal/relay"
	"github.com/livecaphq/livecap/internal/session"
	"github.com/livecaphq/livecap/internal/transcribe"
)

// Daemon hosts a caption session: it owns the relay connection, approves
// guests on request, and toggles the capture pipeline whose entries it
// broadcasts. The CLI talks to it over the control socket.
type Daemon struct {
	manager  *config.Manager
	notifier notify.Notifier
	broker   *relay.LogBroker // backs the in-process session backend

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	coord *session.Coordinator
	pipe  *pipeline.Pipeline

	pumps sync.WaitGroup
}

func New(manager *config.Manager, n notify.Notifier) *Daemon {
	if n == nil {
		n = notify.Desktop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		manager:  manager,
		notifier: n,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.manager.StartWatching(d.ctx); err != nil {
		log.Printf("daemon: config watch unavailable: %v", err)
	}
	defer d.manager.Stop()

	if err := d.openSession(); err != nil {
		return err
	}
	defer d.closeSession()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("daemon: received signal %v, shutting down", sig)
		d.cancel()
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("daemon: started, listening on control socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("daemon: shutdown requested")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// openSession connects the host coordinator to the configured relay and
// starts forwarding its events to the notifier.
func (d *Daemon) openSession() error {
	cfg := d.manager.GetConfig()

	selfID, err := session.LoadIdentity()
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	sessionID := relay.NormalizeSessionID(cfg.Session.ID)

	var channel relay.Channel
	switch cfg.Session.Backend {
	case "log":
		d.broker = relay.NewLogBroker()
		channel = d.broker.Channel(sessionID, selfID)
	default:
		channel = relay.NewWSChannel(cfg.Session.RelayURL, sessionID, selfID)
	}

	coord := session.NewHost(channel, selfID, nil)
	if err := coord.Connect(d.ctx); err != nil {
		return fmt.Errorf("open session %s: %w", sessionID, err)
	}

	d.mu.Lock()
	d.coord = coord
	d.mu.Unlock()

	d.pumps.Add(1)
	go d.pumpSession(coord)

	log.Printf("daemon: hosting session %s", sessionID)
	return nil
}

func (d *Daemon) closeSession() {
	d.mu.Lock()
	coord := d.coord
	pipe := d.pipe
	d.coord = nil
	d.pipe = nil
	d.mu.Unlock()

	if pipe != nil {
		pipe.Stop()
	}
	if coord != nil {
		if err := coord.End(); err != nil {
			log.Printf("daemon: end session: %v", err)
		}
		coord.Close()
	}
	d.pumps.Wait()
}

func (d *Daemon) pumpSession(coord *session.Coordinator) {
	defer d.pumps.Done()
	for {
		select {
		case e := <-coord.Events():
			switch e.Kind {
			case session.EventGuestRequested:
				go d.notifier.GuestRequested(e.Guest.DisplayName)
			case session.EventGuestConnected:
				go d.notifier.GuestConnected(e.Guest.DisplayName)
			}
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Daemon) status() pipeline.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pipe == nil {
		return pipeline.Idle
	}
	return d.pipe.Status()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("daemon: client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdToggle:
		if err := d.toggle(); err != nil {
			fmt.Fprintf(c, "ERR toggle: %v\n", err)
			return
		}
		fmt.Fprint(c, "OK toggled\n")

	case bus.CmdStatus:
		d.mu.Lock()
		coord := d.coord
		d.mu.Unlock()
		pending := "-"
		guests := 0
		entries := 0
		if coord != nil {
			if g := coord.PendingGuest(); g != nil {
				pending = g.DisplayName
			}
			guests = len(coord.Guests())
			entries = coord.Transcript().Len()
		}
		fmt.Fprintf(c, "STATUS status=%s pending=%s guests=%d entries=%d\n",
			d.status(), pending, guests, entries)

	case bus.CmdClear:
		if err := d.withCoordinator(func(co *session.Coordinator) error { return co.ClearTranscript() }); err != nil {
			fmt.Fprintf(c, "ERR clear: %v\n", err)
			return
		}
		fmt.Fprint(c, "OK cleared\n")

	case bus.CmdApprove:
		if err := d.withCoordinator(func(co *session.Coordinator) error { return co.Approve() }); err != nil {
			fmt.Fprintf(c, "ERR approve: %v\n", err)
			return
		}
		fmt.Fprint(c, "OK approved\n")

	case bus.CmdReject:
		if err := d.withCoordinator(func(co *session.Coordinator) error { return co.Reject() }); err != nil {
			fmt.Fprintf(c, "ERR reject: %v\n", err)
			return
		}
		fmt.Fprint(c, "OK rejected\n")

	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)

	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()

	default:
		log.Printf("daemon: unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) withCoordinator(fn func(*session.Coordinator) error) error {
	d.mu.Lock()
	coord := d.coord
	d.mu.Unlock()
	if coord == nil {
		return fmt.Errorf("no active session")
	}
	return fn(coord)
}

// toggle starts the capture pipeline, or stops it if one is running.
func (d *Daemon) toggle() error {
	d.mu.Lock()
	pipe := d.pipe
	d.pipe = nil
	d.mu.Unlock()

	if pipe != nil {
		pipe.Stop()
		go d.notifier.CaptureChanged(false)
		return nil
	}

	cfg := d.manager.GetConfig()

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	recorder := capture.NewRecorder(cfg.ToRecorderConfig())
	engine := capture.NewEngine(cfg.ToEngineConfig(), recorder)
	pipe = pipeline.New(engine, client, cfg.Transcription.Preroll)

	if err := pipe.Start(d.ctx); err != nil {
		return err
	}

	d.mu.Lock()
	d.pipe = pipe
	d.mu.Unlock()

	d.pumps.Add(1)
	go d.pumpPipeline(pipe)

	go d.notifier.CaptureChanged(true)
	return nil
}

// pumpPipeline forwards pipeline events to the notifier and publishes
// transcript entries to the session. Ends when the pipeline stops and
// closes its event stream.
func (d *Daemon) pumpPipeline(pipe *pipeline.Pipeline) {
	defer d.pumps.Done()
	for e := range pipe.Events() {
		switch e.Kind {
		case pipeline.EventWarmup:
			go d.notifier.Warmup()
		case pipeline.EventReady:
			go d.notifier.Ready()
		case pipeline.EventTranscript:
			if err := d.withCoordinator(func(co *session.Coordinator) error {
				return co.PublishEntry(*e.Entry)
			}); err != nil {
				log.Printf("daemon: publish entry: %v", err)
			}
		case pipeline.EventError:
			go d.notifier.Error(fmt.Sprintf("transcription stopped: %v", e.Err))
			d.mu.Lock()
			if d.pipe == pipe {
				d.pipe = nil
			}
			d.mu.Unlock()
		}
	}
}

func buildClient(cfg *config.Config) (transcribe.Client, error) {
	switch cfg.Transcription.Provider {
	case "openai":
		return transcribe.NewOpenAIClient(cfg.Transcription.Token, cfg.Transcription.Endpoint, cfg.Transcription.Model)
	default:
		return transcribe.NewInferenceClient(cfg.ToClientConfig()), nil
	}
}
