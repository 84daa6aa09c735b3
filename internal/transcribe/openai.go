package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient is an alternative backend speaking the OpenAI-compatible
// transcription API (OpenAI itself, or a compatible server via BaseURL).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a Whisper transcription client. baseURL is
// optional; model defaults to whisper-1.
func NewOpenAIClient(apiKey, baseURL, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai transcription requires an API key")
	}
	if model == "" {
		model = openai.Whisper1
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (c *OpenAIClient) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", nil
	}

	req := openai.AudioRequest{
		Model:    c.model,
		Reader:   bytes.NewReader(wav),
		FilePath: "audio.wav",
	}

	resp, err := c.client.CreateTranscription(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.HTTPStatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return "", &AuthError{Status: apiErr.HTTPStatusCode}
			default:
				return "", &RequestError{Status: apiErr.HTTPStatusCode, Err: err}
			}
		}
		return "", &RequestError{Err: err}
	}

	return resp.Text, nil
}
