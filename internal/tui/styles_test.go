package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/livecaphq/livecap/internal/transcript"
)

func TestRenderEntry(t *testing.T) {
	e := transcript.Entry{
		ID:        "1",
		Sender:    transcript.SenderSpeaker,
		Text:      "hello viewers",
		Timestamp: time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC),
	}

	out := RenderEntry(e)
	if !strings.Contains(out, "hello viewers") {
		t.Errorf("rendered entry should contain the text, got: %q", out)
	}
	if !strings.Contains(out, "10:30:00") {
		t.Errorf("rendered entry should contain the timestamp, got: %q", out)
	}
	if !strings.Contains(out, "host") {
		t.Errorf("speaker entries should be labelled host, got: %q", out)
	}
}

func TestSpeakerLabel(t *testing.T) {
	if got := speakerLabel(transcript.SenderSpeaker); got != "host" {
		t.Errorf("speakerLabel(speaker) = %q, want host", got)
	}
	if got := speakerLabel(transcript.SenderRemoteModel); got != "remote-model" {
		t.Errorf("speakerLabel(remote-model) = %q, want remote-model", got)
	}
}
