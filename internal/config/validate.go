package config

import "fmt"

func (c *Config) Validate() error {
	if c.Capture.SampleRate <= 0 {
		return fmt.Errorf("invalid capture.sample_rate: %d", c.Capture.SampleRate)
	}
	if c.Capture.BufferSize <= 0 {
		return fmt.Errorf("invalid capture.buffer_size: %d", c.Capture.BufferSize)
	}
	if c.Capture.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid capture.channel_buffer_size: %d", c.Capture.ChannelBufferSize)
	}
	if c.Capture.FlushInterval <= 0 {
		return fmt.Errorf("invalid capture.flush_interval: %v", c.Capture.FlushInterval)
	}

	switch c.Capture.Silence.Policy {
	case "off", "fixed", "adaptive":
	default:
		return fmt.Errorf("invalid capture.silence.policy: %q (use off, fixed or adaptive)", c.Capture.Silence.Policy)
	}
	if c.Capture.Silence.Policy == "fixed" && c.Capture.Silence.Threshold <= 0 {
		return fmt.Errorf("invalid capture.silence.threshold: %v", c.Capture.Silence.Threshold)
	}
	if c.Capture.Silence.Policy == "adaptive" && c.Capture.Silence.Margin <= 1 {
		return fmt.Errorf("invalid capture.silence.margin: %v (must exceed 1)", c.Capture.Silence.Margin)
	}

	switch c.Transcription.Provider {
	case "inference":
		if c.Transcription.Endpoint == "" {
			return fmt.Errorf("transcription.endpoint required for the inference provider")
		}
	case "openai":
		if c.Transcription.Token == "" {
			return fmt.Errorf("OpenAI API key required: set transcription.token or LIVECAP_TOKEN")
		}
	default:
		return fmt.Errorf("invalid transcription.provider: %q (use inference or openai)", c.Transcription.Provider)
	}
	if c.Transcription.Timeout <= 0 {
		return fmt.Errorf("invalid transcription.timeout: %v", c.Transcription.Timeout)
	}

	switch c.Session.Backend {
	case "websocket":
		if c.Session.RelayURL == "" {
			return fmt.Errorf("session.relay_url required for the websocket backend")
		}
	case "log":
	default:
		return fmt.Errorf("invalid session.backend: %q (use websocket or log)", c.Session.Backend)
	}
	if c.Session.ID == "" {
		return fmt.Errorf("session.id required")
	}
	if c.Session.SettleDelay < 0 {
		return fmt.Errorf("invalid session.settle_delay: %v", c.Session.SettleDelay)
	}

	switch c.Notifications.Type {
	case "", "desktop", "log", "none":
	default:
		return fmt.Errorf("invalid notifications.type: %q (use desktop, log or none)", c.Notifications.Type)
	}

	return nil
}
