package config

import (
	"time"

	"github.com/livecaphq/livecap/internal/audio"
)

// DefaultConfig returns the initial configuration used for onboarding.
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			SampleRate:        48000,
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
			FlushInterval:     3 * time.Second,
			Silence: SilenceConfig{
				Policy:             "fixed",
				Threshold:          0.005,
				Margin:             1.3,
				CalibrationSamples: audio.DefaultCalibrationSamples,
			},
		},
		Transcription: TranscriptionConfig{
			Provider: "inference",
			Timeout:  30 * time.Second,
			Preroll:  true,
		},
		Session: SessionConfig{
			Backend:     "websocket",
			SettleDelay: 500 * time.Millisecond,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}

func (s SilenceConfig) gate() audio.Gate {
	switch s.Policy {
	case "adaptive":
		return audio.NewAdaptiveGate(s.Margin, s.CalibrationSamples)
	case "fixed":
		return audio.FixedGate{Threshold: s.Threshold}
	default:
		return nil
	}
}
