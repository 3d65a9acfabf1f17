package agent

import (
	"strings"
	"testing"
)

func TestMemoryNone(t *testing.T) {
	m := NewMemory(nil)
	m.Record(MemoryEntry{Observation: "a room", Action: 1})
	if m.Block() != "" {
		t.Error("none mode must render no memory block")
	}
	if m.NeedsSummary() {
		t.Error("none mode never summarizes")
	}
}

func TestMemoryHistoryWindow(t *testing.T) {
	m := NewMemory(&MemoryConfig{Type: MemoryHistory, MaxHistory: 2})
	m.Record(MemoryEntry{Observation: "first room", Action: 1})
	m.Record(MemoryEntry{Observation: "second room", Action: 2})
	m.Record(MemoryEntry{Observation: "third room", Action: 1, Reasoning: "left door"})

	block := m.Block()
	if strings.Contains(block, "first room") {
		t.Error("entries beyond max_history must be dropped")
	}
	if !strings.Contains(block, "second room") || !strings.Contains(block, "third room") {
		t.Errorf("recent entries missing from block: %q", block)
	}
	if !strings.Contains(block, "left door") {
		t.Errorf("reasoning missing from block: %q", block)
	}
}

func TestMemoryHistoryVerbatim(t *testing.T) {
	// History entries are not condensed: long observations and
	// multi-line text survive into the prompt untouched.
	long := "The hall stretches on, " + strings.Repeat("pillar after pillar, ", 20) + "into darkness."
	m := NewMemory(&MemoryConfig{Type: MemoryHistory, MaxHistory: 2})
	m.Record(MemoryEntry{Observation: long, Action: 2, Reasoning: "the\nleft\npath"})

	block := m.Block()
	if !strings.Contains(block, long) {
		t.Errorf("long observation truncated in block: %q", block)
	}
	if !strings.Contains(block, "the\nleft\npath") {
		t.Errorf("reasoning whitespace flattened in block: %q", block)
	}
}

func TestMemorySummaryCadence(t *testing.T) {
	m := NewMemory(&MemoryConfig{Type: MemorySummary, MaxHistory: 2, SummarizeEvery: 3})

	m.Record(MemoryEntry{Observation: "one", Action: 1})
	m.Record(MemoryEntry{Observation: "two", Action: 1})
	if m.NeedsSummary() {
		t.Error("no summary before entries outgrow the window")
	}
	m.Record(MemoryEntry{Observation: "three", Action: 1})
	if !m.NeedsSummary() {
		t.Error("expected summary at step 3 with 3 entries and window 2")
	}

	input := m.SummaryInput()
	if !strings.Contains(input, "one") {
		t.Errorf("older entries missing from summary input: %q", input)
	}

	m.ApplySummary("The hero explored the cave.")
	block := m.Block()
	if !strings.Contains(block, "The hero explored the cave.") {
		t.Errorf("summary missing from block: %q", block)
	}
	if strings.Contains(block, "one") {
		t.Error("summarized entries must leave the raw window")
	}
}

func TestMemoryNoteIsOneShot(t *testing.T) {
	m := NewMemory(&MemoryConfig{Type: MemoryHistory, MaxHistory: 3})
	m.SetNote("Calculator result: 12")

	first := m.Block()
	if !strings.Contains(first, "Calculator result: 12") {
		t.Errorf("note missing from block: %q", first)
	}
	if strings.Contains(m.Block(), "Calculator result") {
		t.Error("note must be consumed by the first render")
	}
}

func TestMemoryNoteWithoutMemory(t *testing.T) {
	m := NewMemory(nil)
	m.SetNote("Calculator result: 4")
	if m.Block() != "Calculator result: 4" {
		t.Error("calculator note must surface even in none mode")
	}
}

func TestCondenseTruncates(t *testing.T) {
	long := strings.Repeat("wordy ", 100)
	out := condense(long)
	if len([]rune(out)) > 163 {
		t.Errorf("condensed text too long: %d runes", len([]rune(out)))
	}
	if !strings.HasSuffix(out, "...") {
		t.Errorf("expected ellipsis, got %q", out)
	}
}
