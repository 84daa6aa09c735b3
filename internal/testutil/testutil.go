package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/livecaphq/livecap/internal/audio"
	"github.com/livecaphq/livecap/internal/capture"
	"github.com/livecaphq/livecap/internal/config"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Transcription.Endpoint = "http://localhost:8000/transcribe"
	cfg.Session.ID = "livecap-test"
	cfg.Session.Backend = "log"
	cfg.Notifications.Type = "log"
	return cfg
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}

// SpeechFrame builds a PCM16 frame of constant-amplitude samples, loud
// enough to pass any silence gate.
func SpeechFrame(n int) capture.Frame {
	block := make([]float32, n)
	for i := range block {
		block[i] = 0.3
	}
	return capture.Frame{Data: audio.EncodePCM16(block), Timestamp: time.Now()}
}

// MockFrameSource implements capture.FrameSource for testing
type MockFrameSource struct {
	Rate       int
	StartError error

	mu      sync.Mutex
	frames  chan capture.Frame
	errs    chan error
	stopped bool
}

func NewMockFrameSource(rate int) *MockFrameSource {
	return &MockFrameSource{
		Rate:   rate,
		frames: make(chan capture.Frame, 64),
		errs:   make(chan error, 1),
	}
}

func (m *MockFrameSource) Start(ctx context.Context) (<-chan capture.Frame, <-chan error, error) {
	if m.StartError != nil {
		return nil, nil, m.StartError
	}
	return m.frames, m.errs, nil
}

func (m *MockFrameSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *MockFrameSource) SampleRate() int { return m.Rate }

func (m *MockFrameSource) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Push feeds a frame to whatever is consuming the source.
func (m *MockFrameSource) Push(f capture.Frame) {
	m.frames <- f
}

// MockClient implements transcribe.Client for testing
type MockClient struct {
	TranscribeFunc func(ctx context.Context, wav []byte) (string, error)

	mu    sync.Mutex
	calls int
}

func (m *MockClient) Transcribe(ctx context.Context, wav []byte) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, wav)
	}
	return "mock transcription", nil
}

func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
