package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Memory modes.
const (
	MemoryNone    = "none"
	MemoryHistory = "message_history"
	MemorySummary = "summary"
)

// ToolCalculator is the only tool in the closed tool set.
const ToolCalculator = "calculator"

const (
	defaultMaxRetries     = 2
	defaultMaxHistory     = 5
	defaultSummarizeEvery = 5
)

// MemoryConfig configures per-run agent memory.
type MemoryConfig struct {
	Type           string `yaml:"type" json:"type"`
	MaxHistory     int    `yaml:"max_history" json:"max_history,omitempty"`
	SummarizeEvery int    `yaml:"summarize_every" json:"summarize_every,omitempty"`
}

// Config describes one agent configuration in a benchmark matrix.
type Config struct {
	AgentID        string        `yaml:"agent_id" json:"agent_id"`
	Model          string        `yaml:"model" json:"model"`
	SystemTemplate string        `yaml:"system_template" json:"system_template,omitempty"`
	ActionTemplate string        `yaml:"action_template" json:"action_template,omitempty"`
	Temperature    *float64      `yaml:"temperature" json:"temperature,omitempty"`
	MaxTokens      uint32        `yaml:"max_tokens" json:"max_tokens,omitempty"`
	Memory         *MemoryConfig `yaml:"memory" json:"memory,omitempty"`
	Tools          []string      `yaml:"tools" json:"tools,omitempty"`
	SkipSingle     bool          `yaml:"skip_single" json:"skip_single"`
	MaxRetries     int           `yaml:"max_retries" json:"max_retries,omitempty"`
	Seed           int64         `yaml:"seed" json:"seed,omitempty"`
}

// Normalize applies defaults and validates closed sets.
func (c *Config) Normalize() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("agent config: model reference not set")
	}
	if c.AgentID == "" {
		// A stable, filesystem-friendly identity derived from the model.
		c.AgentID = strings.NewReplacer(":", "_", "/", "_", ".", "_").Replace(c.Model)
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.Memory != nil {
		switch c.Memory.Type {
		case "", MemoryNone:
			c.Memory.Type = MemoryNone
		case MemoryHistory, MemorySummary:
		default:
			return fmt.Errorf("agent config: unknown memory type %q", c.Memory.Type)
		}
		if c.Memory.MaxHistory <= 0 {
			c.Memory.MaxHistory = defaultMaxHistory
		}
		if c.Memory.SummarizeEvery <= 0 {
			c.Memory.SummarizeEvery = defaultSummarizeEvery
		}
	}
	for _, tool := range c.Tools {
		if tool != ToolCalculator {
			return fmt.Errorf("agent config: unknown tool %q", tool)
		}
	}
	return nil
}

// JSON renders the config for persistence in the runs table.
func (c Config) JSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// HasTool reports whether the named tool is enabled.
func (c Config) HasTool(name string) bool {
	for _, t := range c.Tools {
		if t == name {
			return true
		}
	}
	return false
}
