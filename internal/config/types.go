package config

import (
	"time"

	"github.com/livecaphq/livecap/internal/capture"
	"github.com/livecaphq/livecap/internal/transcribe"
)

type Config struct {
	Capture       CaptureConfig       `toml:"capture"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Session       SessionConfig       `toml:"session"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type CaptureConfig struct {
	SampleRate        int           `toml:"sample_rate"`
	BufferSize        int           `toml:"buffer_size"`
	Device            string        `toml:"device"`
	ChannelBufferSize int           `toml:"channel_buffer_size"`
	FlushInterval     time.Duration `toml:"flush_interval"`
	Silence           SilenceConfig `toml:"silence"`
}

// SilenceConfig selects the gating policy: "off", "fixed" or "adaptive".
type SilenceConfig struct {
	Policy             string  `toml:"policy"`
	Threshold          float64 `toml:"threshold"`           // fixed policy
	Margin             float64 `toml:"margin"`              // adaptive policy
	CalibrationSamples int     `toml:"calibration_samples"` // adaptive policy, at 16 kHz
}

// TranscriptionConfig configures the speech-to-text backend. Provider is
// "inference" (raw audio/wav POST) or "openai".
type TranscriptionConfig struct {
	Provider string        `toml:"provider"`
	Endpoint string        `toml:"endpoint"`
	Token    string        `toml:"token"`
	Model    string        `toml:"model"`
	Timeout  time.Duration `toml:"timeout"`
	Preroll  bool          `toml:"preroll"`
}

type SessionConfig struct {
	ID          string        `toml:"id"`
	RelayURL    string        `toml:"relay_url"`
	Backend     string        `toml:"backend"` // "websocket" or "log"
	DisplayName string        `toml:"display_name"`
	SettleDelay time.Duration `toml:"settle_delay"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

// ToRecorderConfig maps the capture section onto the recorder.
func (c *Config) ToRecorderConfig() capture.RecorderConfig {
	return capture.RecorderConfig{
		SampleRate:        c.Capture.SampleRate,
		Channels:          1,
		Format:            "s16le",
		BufferSize:        c.Capture.BufferSize,
		Device:            c.Capture.Device,
		ChannelBufferSize: c.Capture.ChannelBufferSize,
	}
}

// ToEngineConfig maps the capture section onto the flush engine.
func (c *Config) ToEngineConfig() capture.EngineConfig {
	cfg := capture.DefaultEngineConfig()
	cfg.FlushInterval = c.Capture.FlushInterval
	cfg.Gate = c.Capture.Silence.gate()
	return cfg
}

// ToClientConfig maps the transcription section onto the inference client.
func (c *Config) ToClientConfig() transcribe.Config {
	return transcribe.Config{
		Endpoint: c.Transcription.Endpoint,
		Token:    c.Transcription.Token,
		Timeout:  c.Transcription.Timeout,
	}
}
