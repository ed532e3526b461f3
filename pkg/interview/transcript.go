package interview

import (
	"sync"
	"time"
)

// Transcript is the in-memory conversation history for one session. Entries
// live only for the lifetime of the session; nothing is persisted.
type Transcript struct {
	mu         sync.Mutex
	entries    []TranscriptEntry
	maxEntries int
	handlers   handlerRegistry[TranscriptEntry]
}

func NewTranscript(maxEntries int) *Transcript {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &Transcript{
		entries:    make([]TranscriptEntry, 0),
		maxEntries: maxEntries,
	}
}

// Append records an entry and notifies handlers. Empty text is ignored.
func (t *Transcript) Append(role Role, text string) {
	if text == "" {
		return
	}
	entry := TranscriptEntry{Role: role, Text: text, At: time.Now()}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	if len(t.entries) > t.maxEntries {
		t.entries = t.entries[len(t.entries)-t.maxEntries:]
	}
	t.mu.Unlock()

	for _, h := range t.handlers.snapshot() {
		h(entry)
	}
}

// AddHandler registers a handler and returns an unsubscribe function.
func (t *Transcript) AddHandler(handler TranscriptHandler) func() {
	return t.handlers.add(handler)
}

// History returns a copy of the current entries.
func (t *Transcript) History() []TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TranscriptEntry(nil), t.entries...)
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Last returns the most recent entry, if any.
func (t *Transcript) Last() (TranscriptEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) == 0 {
		return TranscriptEntry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	t.entries = t.entries[:0]
	t.mu.Unlock()
}
