package transcribe

import (
	"errors"
	"fmt"
)

// AuthError marks a 401/403 from the backend. Fatal: capture must stop and
// the error surfaces to the caller.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("transcription auth rejected (status %d)", e.Status)
}

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// WarmupError signals that the remote model is still loading. Non-fatal:
// the pipeline keeps going and retries with the next chunk.
type WarmupError struct {
	Message string
}

func (e *WarmupError) Error() string {
	if e.Message == "" {
		return "transcription model warming up"
	}
	return "transcription model warming up: " + e.Message
}

func IsWarmupError(err error) bool {
	var we *WarmupError
	return errors.As(err, &we)
}

// RequestError covers any other backend failure or malformed response.
// Non-fatal: logged, the chunk is dropped and the next one carries new
// audio.
type RequestError struct {
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription request failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transcription request failed (status %d)", e.Status)
}

func (e *RequestError) Unwrap() error { return e.Err }
