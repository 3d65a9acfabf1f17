package agent

import (
	"fmt"
	"strings"
)

// MemoryEntry is one remembered step tuple.
type MemoryEntry struct {
	Observation string
	Choices     []string
	Action      int
	Reasoning   string
}

// Memory is per-run agent memory: a bounded sequence of step tuples,
// optionally reduced to a rolling summary. Pure data; it never touches
// the LLM itself and is never persisted.
type Memory struct {
	mode           string
	maxHistory     int
	summarizeEvery int

	entries []MemoryEntry
	summary string
	note    string
	steps   int
}

// NewMemory creates memory for the given config. A nil config means no
// memory.
func NewMemory(cfg *MemoryConfig) *Memory {
	if cfg == nil || cfg.Type == MemoryNone {
		return &Memory{mode: MemoryNone}
	}
	return &Memory{
		mode:           cfg.Type,
		maxHistory:     cfg.MaxHistory,
		summarizeEvery: cfg.SummarizeEvery,
	}
}

// Record appends a step tuple.
func (m *Memory) Record(e MemoryEntry) {
	m.steps++
	if m.mode == MemoryNone {
		return
	}
	m.entries = append(m.entries, e)
	if m.mode == MemoryHistory && len(m.entries) > m.maxHistory {
		m.entries = m.entries[len(m.entries)-m.maxHistory:]
	}
}

// SetNote stages a one-shot note (calculator output) for the next
// block render.
func (m *Memory) SetNote(note string) {
	m.note = note
}

// Block renders the memory block for prompt inclusion. The staged note
// is consumed by the render.
func (m *Memory) Block() string {
	note := m.note
	m.note = ""

	if m.mode == MemoryNone {
		return note
	}

	var b strings.Builder
	if m.summary != "" {
		b.WriteString("Summary of earlier steps: ")
		b.WriteString(m.summary)
		b.WriteString("\n")
	}

	// History entries go into the prompt verbatim; only summary input
	// is condensed.
	recent := m.entries
	if len(recent) > m.maxHistory {
		recent = recent[len(recent)-m.maxHistory:]
	}
	for _, e := range recent {
		fmt.Fprintf(&b, "- %s | chose %d", e.Observation, e.Action)
		if e.Reasoning != "" {
			fmt.Fprintf(&b, " (%s)", e.Reasoning)
		}
		b.WriteString("\n")
	}
	if note != "" {
		b.WriteString(note)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// NeedsSummary reports whether the rolling summary should be refreshed
// now. Only summary mode summarizes, every summarizeEvery steps, once
// entries have outgrown the raw-history window.
func (m *Memory) NeedsSummary() bool {
	return m.mode == MemorySummary &&
		m.steps > 0 &&
		m.steps%m.summarizeEvery == 0 &&
		len(m.entries) > m.maxHistory
}

// SummaryInput renders the material to summarize: the existing summary
// plus the entries beyond the raw-history window.
func (m *Memory) SummaryInput() string {
	var b strings.Builder
	if m.summary != "" {
		b.WriteString("Earlier summary: ")
		b.WriteString(m.summary)
		b.WriteString("\n")
	}
	older := m.entries[:len(m.entries)-m.maxHistory]
	for _, e := range older {
		fmt.Fprintf(&b, "- %s | chose %d", condense(e.Observation), e.Action)
		if e.Reasoning != "" {
			fmt.Fprintf(&b, " (%s)", condense(e.Reasoning))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ApplySummary installs a fresh summary and drops the entries it
// covers.
func (m *Memory) ApplySummary(summary string) {
	m.summary = strings.TrimSpace(summary)
	if len(m.entries) > m.maxHistory {
		m.entries = m.entries[len(m.entries)-m.maxHistory:]
	}
}

// condense flattens and truncates text for compact memory lines.
func condense(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const limit = 160
	if len(s) > limit {
		runes := []rune(s)
		if len(runes) > limit {
			return string(runes[:limit]) + "..."
		}
	}
	return s
}
