package agent

import (
	"strings"
	"testing"
)

func TestParseDecisionStrictJSON(t *testing.T) {
	d, err := parseDecision(`{"analysis": "a dark room", "reasoning": "the door looks safe", "result": 2}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Result != 2 {
		t.Errorf("expected result 2, got %d", d.Result)
	}
	if d.Reasoning != "the door looks safe" {
		t.Errorf("unexpected reasoning: %q", d.Reasoning)
	}
}

func TestParseDecisionMarkdownFence(t *testing.T) {
	content := "Here is my choice:\n```json\n{\"reasoning\": \"go\", \"result\": 1}\n```"
	d, err := parseDecision(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Result != 1 {
		t.Errorf("expected result 1, got %d", d.Result)
	}
}

func TestParseDecisionQuotedResult(t *testing.T) {
	d, err := parseDecision(`{"reasoning": "sure", "result": "3"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Result != 3 {
		t.Errorf("expected result 3, got %d", d.Result)
	}
}

func TestParseDecisionTruncated(t *testing.T) {
	// Truncated mid-string: strict parse fails, field recovery saves
	// the result and the partial reasoning.
	content := `{"analysis": "the guard blocks the way", "result": 2, "reasoning": "bribe him bec`
	d, err := parseDecision(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Result != 2 {
		t.Errorf("expected recovered result 2, got %d", d.Result)
	}
	if !strings.Contains(d.Reasoning, "bribe him") {
		t.Errorf("expected partial reasoning preserved, got %q", d.Reasoning)
	}
}

func TestParseDecisionAnalysisPromoted(t *testing.T) {
	d, err := parseDecision(`{"analysis": "two doors, left one is lit", "result": 1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Reasoning != "two doors, left one is lit" {
		t.Errorf("expected analysis promoted to reasoning, got %q", d.Reasoning)
	}
}

func TestParseDecisionMissingResult(t *testing.T) {
	if _, err := parseDecision(`{"reasoning": "hmm"}`); err == nil {
		t.Error("expected error for missing result")
	}
}

func TestParseDecisionGarbage(t *testing.T) {
	if _, err := parseDecision("I would simply pick the best option."); err == nil {
		t.Error("expected error for prose without JSON")
	}
}

func TestMergePartialKeepsBest(t *testing.T) {
	var best Decision
	mergePartial(&best, Decision{Reasoning: "first attempt reasoning"})
	mergePartial(&best, Decision{Reasoning: "second", Analysis: "late analysis"})
	if best.Reasoning != "first attempt reasoning" {
		t.Errorf("first reasoning must win, got %q", best.Reasoning)
	}
	if best.Analysis != "late analysis" {
		t.Errorf("analysis should backfill, got %q", best.Analysis)
	}
}
