package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Boat Quest":        "boat_quest",
		"random:seed/1":     "random_seed_1",
		"deepseek-chat":     "deepseek-chat",
		"  spaced  name  ":  "spaced_name",
		"quest.v2":          "quest.v2",
		"":                  "unnamed",
		"///":               "unnamed",
		"MiXeD CASE quest!": "mixed_case_quest",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestBuildAndWriteRunSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID := uuid.NewString()
	if err := s.CreateRun(ctx, RunRecord{
		RunID: runID, QuestName: "Boat Quest", AgentID: "random_1",
		AgentConfig: `{"model":"random"}`, StartTime: time.Now(),
	}); err != nil {
		t.Fatalf("create run failed: %v", err)
	}

	if err := s.AppendStep(ctx, StepRecord{
		RunID: runID, StepNumber: 1, LocationID: "1",
		Observation: "Start", Choices: `["Sail","Row"]`,
	}); err != nil {
		t.Fatalf("append step failed: %v", err)
	}
	action := 2
	if err := s.AppendStep(ctx, StepRecord{
		RunID: runID, StepNumber: 2, LocationID: "2",
		Observation: "Win", Choices: `[]`, Action: &action, Reward: 1.0,
		LLMDecision: `{"result":2}`, PromptTokens: 50, CompletionTokens: 10,
		TotalTokens: 60, CostUSD: 0.002,
	}); err != nil {
		t.Fatalf("append step failed: %v", err)
	}
	if _, err := s.CommitOutcome(ctx, runID, OutcomeSuccess, 1.0, "quest_success"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	summary, err := s.BuildRunSummary(ctx, runID)
	if err != nil {
		t.Fatalf("build summary failed: %v", err)
	}
	if summary.Outcome != OutcomeSuccess || summary.Reward != 1.0 {
		t.Errorf("unexpected outcome fields: %+v", summary)
	}
	if summary.StepCount != 2 || len(summary.Steps) != 2 {
		t.Errorf("expected 2 steps, got %d", summary.StepCount)
	}
	if summary.Usage.TotalTokens != 60 || summary.Usage.CostUSD != 0.002 {
		t.Errorf("unexpected usage rollup: %+v", summary.Usage)
	}
	if summary.Steps[0].Action != nil {
		t.Error("initial step action must stay null in the artifact")
	}

	resultsDir := t.TempDir()
	path, err := WriteRunSummary(resultsDir, summary)
	if err != nil {
		t.Fatalf("write summary failed: %v", err)
	}

	want := filepath.Join(resultsDir, "random_1", "boat_quest", "run_"+runID, "run_summary.json")
	if path != want {
		t.Errorf("expected path %q, got %q", want, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	var decoded RunSummary
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if decoded.RunID != runID {
		t.Errorf("round-tripped run ID mismatch: %q", decoded.RunID)
	}
	if !strings.Contains(string(data), `"Sail"`) {
		t.Error("choices missing from artifact")
	}
}

func TestBenchmarkSummaryPath(t *testing.T) {
	got := BenchmarkSummaryPath("results", "bench-1")
	want := filepath.Join("results", "benchmarks", "bench-1", "benchmark_summary.json")
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRawJSONFallback(t *testing.T) {
	if out := rawJSON(`{"a":1}`); string(out) != `{"a":1}` {
		t.Errorf("valid JSON must pass through, got %s", out)
	}
	out := rawJSON("not json")
	var s string
	if err := json.Unmarshal(out, &s); err != nil || s != "not json" {
		t.Errorf("invalid JSON must become a JSON string, got %s", out)
	}
	if rawJSON("") != nil {
		t.Error("empty input must stay nil")
	}
}
