package interview

import "testing"

func TestTranscriptAppendAndHistory(t *testing.T) {
	transcript := NewTranscript(10)

	transcript.Append(RoleBot, "Why do you want this role?")
	transcript.Append(RoleUser, "I like hard problems.")
	transcript.Append(RoleBot, "") // ignored

	if got := transcript.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}

	last, ok := transcript.Last()
	if !ok || last.Role != RoleUser {
		t.Errorf("Last = %+v, want user entry", last)
	}

	history := transcript.History()
	history[0].Text = "mutated"
	if fresh := transcript.History(); fresh[0].Text == "mutated" {
		t.Error("History must return a copy")
	}
}

func TestTranscriptBoundsLength(t *testing.T) {
	transcript := NewTranscript(3)

	for _, text := range []string{"a", "b", "c", "d", "e"} {
		transcript.Append(RoleUser, text)
	}

	if got := transcript.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}

	history := transcript.History()
	if history[0].Text != "c" || history[2].Text != "e" {
		t.Errorf("oldest entries were not evicted: %+v", history)
	}
}

func TestTranscriptHandlerUnsubscribe(t *testing.T) {
	transcript := NewTranscript(10)

	var seen []string
	unsubscribe := transcript.AddHandler(func(entry TranscriptEntry) {
		seen = append(seen, entry.Text)
	})

	transcript.Append(RoleBot, "one")
	unsubscribe()
	transcript.Append(RoleBot, "two")

	if len(seen) != 1 || seen[0] != "one" {
		t.Errorf("seen = %v, want [one]", seen)
	}
}

func TestTranscriptUnsubscribeOrderIndependent(t *testing.T) {
	transcript := NewTranscript(10)

	var seen []string
	record := func(name string) TranscriptHandler {
		return func(TranscriptEntry) { seen = append(seen, name) }
	}
	unsubFirst := transcript.AddHandler(record("first"))
	unsubSecond := transcript.AddHandler(record("second"))
	transcript.AddHandler(record("third"))

	unsubFirst()
	unsubSecond()

	transcript.Append(RoleBot, "still delivered")

	if len(seen) != 1 || seen[0] != "third" {
		t.Errorf("handlers run = %v, want [third]", seen)
	}
}

func TestTranscriptClear(t *testing.T) {
	transcript := NewTranscript(10)
	transcript.Append(RoleUser, "hello")
	transcript.Clear()

	if got := transcript.Len(); got != 0 {
		t.Errorf("Len after Clear = %d, want 0", got)
	}
	if _, ok := transcript.Last(); ok {
		t.Error("Last must report no entries after Clear")
	}
}
