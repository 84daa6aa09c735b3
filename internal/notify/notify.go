package notify

import (
	"fmt"
	"log"
	"os/exec"
)

type Notifier interface {
	CaptureChanged(on bool)
	Warmup()
	Ready()
	GuestRequested(displayName string)
	GuestConnected(displayName string)
	SessionEnded()
	Error(msg string)
	Notify(title, message string)
}

type Desktop struct{}

func (Desktop) CaptureChanged(on bool) {
	state := "Stopped"
	if on {
		state = "Started"
	}
	send(fmt.Sprintf("Livecap: Capture %s", state))
}

func (Desktop) Warmup() {
	send("Livecap: Transcription model warming up")
}

func (Desktop) Ready() {
	send("Livecap: Live captions ready")
}

func (Desktop) GuestRequested(displayName string) {
	send(fmt.Sprintf("Livecap: %s wants to join", displayName))
}

func (Desktop) GuestConnected(displayName string) {
	send(fmt.Sprintf("Livecap: %s joined", displayName))
}

func (Desktop) SessionEnded() {
	send("Livecap: Session ended")
}

func (Desktop) Error(msg string) {
	cmd := exec.Command("notify-send", "-a", "Livecap", "-u", "critical", msg)
	if err := cmd.Run(); err != nil {
		log.Printf("notify: failed to send error notification: %v", err)
	}
}

func (Desktop) Notify(title, message string) {
	cmd := exec.Command("notify-send", "-a", "Livecap", title, message)
	if err := cmd.Run(); err != nil {
		log.Printf("notify: failed to send notification: %v", err)
	}
}

func send(msg string) {
	cmd := exec.Command("notify-send", "-a", "Livecap", msg)
	if err := cmd.Run(); err != nil {
		log.Printf("notify: failed to send notification: %v", err)
	}
}

// Log writes notifications to the process log instead of the desktop.
type Log struct{}

func (Log) CaptureChanged(on bool) {
	state := "stopped"
	if on {
		state = "started"
	}
	log.Printf("notify: capture %s", state)
}

func (Log) Warmup() { log.Printf("notify: transcription model warming up") }
func (Log) Ready()  { log.Printf("notify: live captions ready") }

func (Log) GuestRequested(displayName string) {
	log.Printf("notify: %s wants to join", displayName)
}

func (Log) GuestConnected(displayName string) {
	log.Printf("notify: %s joined", displayName)
}

func (Log) SessionEnded() { log.Printf("notify: session ended") }

func (Log) Error(msg string) { log.Printf("notify: Livecap error: %s", msg) }

func (Log) Notify(title, message string) { log.Printf("notify: %s: %s", title, message) }

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) CaptureChanged(on bool)            {}
func (Nop) Warmup()                           {}
func (Nop) Ready()                            {}
func (Nop) GuestRequested(displayName string) {}
func (Nop) GuestConnected(displayName string) {}
func (Nop) SessionEnded()                     {}
func (Nop) Error(msg string)                  {}
func (Nop) Notify(title, message string)      {}

// ForType maps a notifications.type config value to an implementation.
func ForType(kind string, enabled bool) Notifier {
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "log":
		return Log{}
	case "none":
		return Nop{}
	default:
		return Desktop{}
	}
}
