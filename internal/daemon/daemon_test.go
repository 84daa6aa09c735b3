package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/livecaphq/livecap/internal/bus"
	"github.com/livecaphq/livecap/internal/config"
	"github.com/livecaphq/livecap/internal/notify"
)

// startTestDaemon isolates config, identity, socket and pid file in temp
// dirs, then runs a daemon on the in-process session backend.
func startTestDaemon(t *testing.T) chan error {
	t.Helper()

	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tempDir, "cache"))

	configDir := filepath.Join(tempDir, "config", "livecap")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `
[transcription]
provider = "inference"
endpoint = "http://localhost:1/transcribe"

[session]
id = "livecap-test"
backend = "log"

[notifications]
enabled = false
`
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	manager, err := config.NewManager()
	if err != nil {
		t.Fatalf("config manager: %v", err)
	}

	d := New(manager, notify.Nop{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run()
	}()

	// Wait for the control socket to answer
	maxAttempts := 50
	for i := range maxAttempts {
		if _, err := bus.SendCommand(bus.CmdStatus); err == nil {
			break
		}
		if i == maxAttempts-1 {
			t.Fatal("daemon failed to start within timeout")
		}
		time.Sleep(10 * time.Millisecond)
	}

	return errCh
}

func stopTestDaemon(t *testing.T, errCh chan error) {
	t.Helper()
	bus.SendCommand(bus.CmdQuit)
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("daemon exited with error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Error("daemon did not exit within timeout")
	}
}

func TestDaemonControlCommands(t *testing.T) {
	errCh := startTestDaemon(t)
	defer stopTestDaemon(t, errCh)

	t.Run("status", func(t *testing.T) {
		out, err := bus.SendCommand(bus.CmdStatus)
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		want := "STATUS status=idle pending=- guests=0 entries=0\n"
		if out != want {
			t.Errorf("unexpected status response: %q, want %q", out, want)
		}
	})

	t.Run("version", func(t *testing.T) {
		out, err := bus.SendCommand(bus.CmdVersion)
		if err != nil {
			t.Fatalf("version failed: %v", err)
		}
		want := fmt.Sprintf("STATUS proto=%s\n", bus.ProtoVer)
		if out != want {
			t.Errorf("unexpected version response: %q, want %q", out, want)
		}
	})

	t.Run("clear", func(t *testing.T) {
		out, err := bus.SendCommand(bus.CmdClear)
		if err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		if out != "OK cleared\n" {
			t.Errorf("unexpected clear response: %q", out)
		}
	})

	t.Run("approve without pending request", func(t *testing.T) {
		out, err := bus.SendCommand(bus.CmdApprove)
		if err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		if !strings.HasPrefix(out, "ERR") {
			t.Errorf("approve with no pending guest should fail, got: %q", out)
		}
	})

	t.Run("reject without pending request", func(t *testing.T) {
		out, err := bus.SendCommand(bus.CmdReject)
		if err != nil {
			t.Fatalf("reject failed: %v", err)
		}
		if !strings.HasPrefix(out, "ERR") {
			t.Errorf("reject with no pending guest should fail, got: %q", out)
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		out, err := bus.SendCommand('x')
		if err != nil {
			t.Fatalf("send failed: %v", err)
		}
		if !strings.HasPrefix(out, "ERR unknown") {
			t.Errorf("unexpected response: %q", out)
		}
	})
}
