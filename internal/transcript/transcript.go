package transcript

import (
	"strconv"
	"sync"
	"time"
)

// Sender identifies who produced a transcript entry.
type Sender string

const (
	SenderSpeaker     Sender = "speaker"
	SenderRemoteModel Sender = "remote-model"
)

// Entry is a single transcribed utterance. Text is immutable after
// creation; entries are only removed by an explicit clear.
type Entry struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Partial   bool      `json:"partial"`
}

var (
	idMu   sync.Mutex
	lastID int64
)

// nextID returns the current time in milliseconds, bumped forward when two
// entries are created within the same millisecond so ids stay unique and
// monotonic.
func nextID(now time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	ms := now.UnixMilli()
	if ms <= lastID {
		ms = lastID + 1
	}
	lastID = ms
	return strconv.FormatInt(ms, 10)
}

// NewEntry builds a final (non-partial) entry with the current time as id.
func NewEntry(sender Sender, text string) Entry {
	now := time.Now()
	return Entry{
		ID:        nextID(now),
		Sender:    sender,
		Text:      text,
		Timestamp: now,
		Partial:   false,
	}
}

// Log is an ordered, append-only transcript log. Safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a snapshot of the log in append order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
