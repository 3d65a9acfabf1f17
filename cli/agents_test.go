package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAgentConfigModelRef(t *testing.T) {
	cfg, err := LoadAgentConfig("deepseek:deepseek-chat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "deepseek:deepseek-chat" {
		t.Errorf("unexpected model: %q", cfg.Model)
	}
	if cfg.AgentID == "" {
		t.Error("agent id must be derived")
	}
}

func TestLoadAgentConfigBareProvider(t *testing.T) {
	cfg, err := LoadAgentConfig("random")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "random" {
		t.Errorf("unexpected model: %q", cfg.Model)
	}
}

func TestLoadAgentConfigUnknownRef(t *testing.T) {
	if _, err := LoadAgentConfig("mystery:model"); err == nil {
		t.Error("expected error for unknown provider reference")
	}
}

func TestLoadAgentConfigYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	content := `
agent_id: strategist
model: claude:claude-sonnet-4-20250514
temperature: 0.2
skip_single: true
memory:
  type: message_history
  max_history: 3
tools:
  - calculator
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := LoadAgentConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AgentID != "strategist" {
		t.Errorf("unexpected agent id: %q", cfg.AgentID)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.2 {
		t.Errorf("unexpected temperature: %v", cfg.Temperature)
	}
	if !cfg.SkipSingle {
		t.Error("skip_single not loaded")
	}
	if cfg.Memory == nil || cfg.Memory.MaxHistory != 3 {
		t.Errorf("memory config not loaded: %+v", cfg.Memory)
	}
	if !cfg.HasTool("calculator") {
		t.Error("tools not loaded")
	}
}

func TestLoadAgentConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("model: [broken"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := LoadAgentConfig(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
