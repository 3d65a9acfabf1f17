// Agent configuration loading for CLI commands.
//
// Information Hiding:
// - Config-file versus model-reference dispatch hidden
// - Provider capability listing hidden

package cli

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/richinex/questbench/agent"
	"github.com/richinex/questbench/llm"
)

// LoadAgentConfig resolves the --agent argument: a YAML config file
// path, or a bare "provider:model" reference.
func LoadAgentConfig(ref string) (agent.Config, error) {
	if looksLikeConfigFile(ref) {
		data, err := os.ReadFile(ref)
		if err != nil {
			return agent.Config{}, fmt.Errorf("failed to read agent config: %w", err)
		}
		var cfg agent.Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return agent.Config{}, fmt.Errorf("failed to parse agent config: %w", err)
		}
		if err := cfg.Normalize(); err != nil {
			return agent.Config{}, err
		}
		return cfg, nil
	}

	if _, _, err := llm.ParseModelRef(ref); err != nil {
		return agent.Config{}, err
	}
	cfg := agent.Config{Model: ref}
	if err := cfg.Normalize(); err != nil {
		return agent.Config{}, err
	}
	return cfg, nil
}

func looksLikeConfigFile(ref string) bool {
	switch {
	case strings.HasSuffix(ref, ".yaml"), strings.HasSuffix(ref, ".yml"), strings.HasSuffix(ref, ".json"):
		return true
	}
	_, err := os.Stat(ref)
	return err == nil
}

// ListProviders prints the supported providers with their default
// models and credential requirements.
func ListProviders() {
	providers := []llm.ProviderType{
		llm.ProviderOpenAI,
		llm.ProviderAnthropic,
		llm.ProviderGoogle,
		llm.ProviderDeepSeek,
		llm.ProviderOpenRouter,
		llm.ProviderRandomLocal,
	}

	fmt.Println("Supported providers:")
	for _, p := range providers {
		credential := p.EnvVar()
		if credential == "" {
			credential = "none"
		}
		fmt.Printf("  %-14s default model %-28s credential %s\n",
			p.String(), p.DefaultModel(), credential)
	}
	fmt.Println("\nAgent references take the form provider:model, e.g. deepseek:deepseek-chat.")
	fmt.Println("A bare provider name selects its default model. Seeded baseline: random.")
}
