package benchmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/richinex/questbench/agent"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	questPath := filepath.Join(dir, "boat.qm")
	writeFile(t, questPath, "qm")

	cfgPath := filepath.Join(dir, "bench.yaml")
	writeFile(t, cfgPath, `
benchmark_id: smoke-test
quests:
  - `+questPath+`
agents:
  - model: random
    seed: 1
  - model: deepseek:deepseek-chat
    agent_id: ds
timeout_per_run: 30
max_workers: 3
interpreter: ["/bin/sh", "interp.sh"]
`)

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.BenchmarkID != "smoke-test" {
		t.Errorf("unexpected benchmark id %q", cfg.BenchmarkID)
	}
	if len(cfg.Agents) != 2 || cfg.Agents[1].AgentID != "ds" {
		t.Errorf("unexpected agents: %+v", cfg.Agents)
	}
	if cfg.Agents[0].AgentID == "" {
		t.Error("agent_id must be derived when omitted")
	}
	if cfg.TimeoutPerRun != 30 || cfg.MaxWorkers != 3 {
		t.Errorf("unexpected knobs: %+v", cfg)
	}
	if cfg.MaxSteps != 100 || cfg.ResultsDir != "results" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestNormalizeValidation(t *testing.T) {
	base := func() *Config {
		return &Config{
			Quests:      []string{"q.qm"},
			Agents:      []agent.Config{{Model: "random"}},
			Interpreter: []string{"sh"},
		}
	}

	cfg := base()
	cfg.Quests = nil
	if err := cfg.Normalize(); err == nil {
		t.Error("expected error for empty quests")
	}

	cfg = base()
	cfg.Agents = nil
	if err := cfg.Normalize(); err == nil {
		t.Error("expected error for empty agents")
	}

	cfg = base()
	cfg.Interpreter = nil
	if err := cfg.Normalize(); err == nil {
		t.Error("expected error for missing interpreter")
	}

	cfg = base()
	cfg.Agents = []agent.Config{
		{Model: "random", AgentID: "dup"},
		{Model: "random", AgentID: "dup"},
	}
	if err := cfg.Normalize(); err == nil {
		t.Error("expected error for duplicate agent ids")
	}

	cfg = base()
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BenchmarkID == "" {
		t.Error("benchmark id must be generated")
	}
}

func TestResolveQuests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "quests", "b.qm"), "qm")
	writeFile(t, filepath.Join(dir, "quests", "nested", "a.qm"), "qm")
	writeFile(t, filepath.Join(dir, "quests", "notes.txt"), "skip me")
	single := filepath.Join(dir, "single.qm")
	writeFile(t, single, "qm")

	cfg := &Config{
		Quests:      []string{filepath.Join(dir, "quests"), single, single},
		Agents:      []agent.Config{{Model: "random"}},
		Interpreter: []string{"sh"},
	}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	quests, err := cfg.ResolveQuests()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(quests) != 3 {
		t.Fatalf("expected 3 quests (deduplicated), got %d: %v", len(quests), quests)
	}
	// Lexicographic order.
	for i := 1; i < len(quests); i++ {
		if quests[i-1] >= quests[i] {
			t.Errorf("quests not sorted: %v", quests)
		}
	}
}

func TestResolveQuestsNoMatches(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Quests:      []string{dir},
		Agents:      []agent.Config{{Model: "random"}},
		Interpreter: []string{"sh"},
	}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if _, err := cfg.ResolveQuests(); err == nil {
		t.Error("expected error for a directory with no .qm files")
	}
}
