package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/livecaphq/livecap/internal/audio"
)

// Client turns one encoded audio packet into at most one piece of
// transcribed text. Errors are classified: AuthError is fatal, WarmupError
// and RequestError are transient.
type Client interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Config for the raw inference endpoint client.
type Config struct {
	Endpoint string
	Token    string // optional bearer credential
	Timeout  time.Duration
}

// InferenceClient posts WAV packets to a speech-to-text inference endpoint
// as an opaque binary body.
type InferenceClient struct {
	client   *http.Client
	endpoint string
	token    string
}

func NewInferenceClient(cfg Config) *InferenceClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InferenceClient{
		client:   &http.Client{Timeout: timeout},
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
	}
}

// textResponse matches both response shapes the backend produces:
// {"text": "..."} or a list whose first element has a text field.
type textResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *InferenceClient) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(wav))
	if err != nil {
		return "", &RequestError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "audio/wav")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return "", &RequestError{Err: fmt.Errorf("post audio: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthError{Status: resp.StatusCode}

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && strings.Contains(strings.ToLower(errResp.Error), "loading") {
			return "", &WarmupError{Message: errResp.Error}
		}
		return "", &RequestError{Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(body)))}
	}

	text, err := parseText(body)
	if err != nil {
		return "", &RequestError{Status: resp.StatusCode, Err: err}
	}

	log.Printf("transcribe: %d bytes in %v: %q", len(wav), duration, text)
	return text, nil
}

// parseText accepts {"text": ...} or [{"text": ...}, ...].
func parseText(body []byte) (string, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []textResponse
		if err := json.Unmarshal(body, &list); err != nil {
			return "", fmt.Errorf("decode response list: %w", err)
		}
		if len(list) == 0 {
			return "", nil
		}
		return list[0].Text, nil
	}

	var single textResponse
	if err := json.Unmarshal(body, &single); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return single.Text, nil
}

// prerollDuration is the length of the silent packet used to pre-warm the
// backend before live audio arrives.
const prerollDuration = 250 * time.Millisecond

// Preroll sends a short silent packet so a cold backend starts loading
// before the first real chunk. Any failure is a warm-up signal, never an
// error.
func Preroll(ctx context.Context, c Client, sampleRate int) bool {
	n := int(prerollDuration.Seconds() * float64(sampleRate))
	silent := audio.EncodeWAV(make([]float32, n), sampleRate)

	if _, err := c.Transcribe(ctx, silent); err != nil {
		log.Printf("transcribe: preroll treated as warm-up signal: %v", err)
		return false
	}
	return true
}
