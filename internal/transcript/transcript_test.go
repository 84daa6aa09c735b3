package transcript

import (
	"testing"
	"time"
)

func TestNewEntryIDsUniqueAndMonotonic(t *testing.T) {
	const n = 100
	var prev string
	for i := 0; i < n; i++ {
		e := NewEntry(SenderSpeaker, "line")
		if e.ID == "" {
			t.Fatal("empty id")
		}
		if prev != "" && e.ID <= prev && len(e.ID) == len(prev) {
			t.Fatalf("id %s not greater than previous %s", e.ID, prev)
		}
		prev = e.ID
	}
}

func TestNewEntryFields(t *testing.T) {
	before := time.Now()
	e := NewEntry(SenderSpeaker, "hello")

	if e.Sender != SenderSpeaker {
		t.Errorf("sender = %s", e.Sender)
	}
	if e.Text != "hello" {
		t.Errorf("text = %q", e.Text)
	}
	if e.Partial {
		t.Error("new entries are final, not partial")
	}
	if e.Timestamp.Before(before.Add(-time.Second)) {
		t.Errorf("timestamp too old: %v", e.Timestamp)
	}
}

func TestLogAppendClearSnapshot(t *testing.T) {
	l := NewLog()
	if l.Len() != 0 {
		t.Fatalf("new log has %d entries", l.Len())
	}

	a := NewEntry(SenderSpeaker, "first")
	b := NewEntry(SenderSpeaker, "second")
	l.Append(a)
	l.Append(b)

	got := l.Entries()
	if len(got) != 2 || got[0].Text != "first" || got[1].Text != "second" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	// Snapshot is detached from the log.
	got[0].Text = "mutated"
	if l.Entries()[0].Text != "first" {
		t.Error("snapshot mutation leaked into the log")
	}

	l.Clear()
	if l.Len() != 0 {
		t.Errorf("log not empty after clear: %d", l.Len())
	}
}
