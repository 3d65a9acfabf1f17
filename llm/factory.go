// LLM Provider Factory - builder-first API for creating LLM providers.
//
// Quick Start:
//
//	// Simplest: use defaults, read API key from environment
//	gpt, err := llm.ProviderOpenAI.FromEnv()
//
//	// With custom model
//	sonnet, err := llm.ProviderAnthropic.Model(llm.ModelAnthropicClaudeSonnet4).FromEnv()
//
//	// From a provider:model reference
//	pt, model, err := llm.ParseModelRef("deepseek:deepseek-chat")
//
//	// The random baseline needs no credentials
//	baseline, err := llm.ProviderRandomLocal.Seed(1).Build()

package llm

import (
	"fmt"
	"os"
	"strings"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderGoogle is the Google Gemini provider.
	ProviderGoogle
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderOpenRouter is the OpenRouter aggregator provider.
	ProviderOpenRouter
	// ProviderRandomLocal is the in-process random baseline. It
	// performs no network I/O and needs no credentials.
	ProviderRandomLocal
)

// String returns the canonical name of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGoogle:
		return "google"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderOpenRouter:
		return "openrouter"
	case ProviderRandomLocal:
		return "random_local"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable holding this provider's API
// key. Empty for providers that need no credentials.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIGPT4o
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderGoogle:
		return ModelGoogleGeminiFlash2
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderOpenRouter:
		return ModelOpenRouterGPT4o
	case ProviderRandomLocal:
		return "random"
	default:
		return ""
	}
}

// providerAliases maps accepted spellings to canonical providers.
var providerAliases = map[string]ProviderType{
	"openai":       ProviderOpenAI,
	"gpt":          ProviderOpenAI,
	"anthropic":    ProviderAnthropic,
	"claude":       ProviderAnthropic,
	"google":       ProviderGoogle,
	"gemini":       ProviderGoogle,
	"deepseek":     ProviderDeepSeek,
	"openrouter":   ProviderOpenRouter,
	"random_local": ProviderRandomLocal,
	"random":       ProviderRandomLocal,
}

// ParseProviderType parses a provider name (case-insensitive, aliases
// accepted).
func ParseProviderType(s string) (ProviderType, error) {
	if pt, ok := providerAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return pt, nil
	}
	return 0, fmt.Errorf("unknown provider: %s", s)
}

// ParseModelRef parses a "provider:model" identifier. A bare provider
// name selects that provider's default model.
func ParseModelRef(ref string) (ProviderType, string, error) {
	name, model, found := strings.Cut(ref, ":")
	pt, err := ParseProviderType(name)
	if err != nil {
		return 0, "", fmt.Errorf("invalid model reference %q: %w", ref, err)
	}
	if !found || strings.TrimSpace(model) == "" {
		return pt, pt.DefaultModel(), nil
	}
	return pt, strings.TrimSpace(model), nil
}

// FromEnv creates a provider with defaults, reading the API key from
// the environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// Seed starts configuring this provider with a deterministic seed.
// Only meaningful for random_local.
func (p ProviderType) Seed(seed int64) *ProviderBuilder {
	return NewProviderBuilder(p).Seed(seed)
}

// ProviderBuilder is a builder for configuring LLM providers.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	maxTokens    uint32
	temperature  *float32
	seed         *int64
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{providerType: providerType}
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets sampling temperature.
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// Seed sets the deterministic seed for the random_local provider.
func (b *ProviderBuilder) Seed(seed int64) *ProviderBuilder {
	b.seed = &seed
	return b
}

// FromEnv builds the provider, reading the API key from the
// environment. random_local builds without credentials.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	if b.providerType == ProviderRandomLocal {
		return b.build("")
	}
	envVar := b.providerType.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %s environment variable not set", b.providerType, envVar)
	}
	return b.build(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

// Build builds a provider that needs no credentials.
func (b *ProviderBuilder) Build() (Provider, error) {
	return b.build("")
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	model := b.model
	if model == "" {
		model = b.providerType.DefaultModel()
	}

	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	// The original benchmark standardizes on 0.4 for reproducibility
	// across providers.
	temperature := float32(0.4)
	if b.temperature != nil {
		temperature = *b.temperature
	}

	switch b.providerType {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderGoogle:
		return NewGoogleProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderDeepSeek:
		return NewDeepSeekProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderOpenRouter:
		return NewOpenRouterProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderRandomLocal:
		seed := int64(0)
		if b.seed != nil {
			seed = *b.seed
		}
		return NewRandomProvider(seed), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", b.providerType)
	}
}

// Model identifier constants for the supported providers.

// OpenAI model identifiers
const (
	ModelOpenAIGPT4o     = "gpt-4o"
	ModelOpenAIGPT4oMini = "gpt-4o-mini"
	ModelOpenAIO3Mini    = "o3-mini"
)

// Anthropic model identifiers
const (
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelAnthropicClaudeHaiku4  = "claude-haiku-4-20250514"
)

// Google model identifiers
const (
	ModelGoogleGeminiFlash2 = "gemini-2.0-flash"
	ModelGoogleGeminiPro2   = "gemini-2.0-pro"
)

// DeepSeek model identifiers
const (
	ModelDeepSeekChat     = "deepseek-chat"
	ModelDeepSeekReasoner = "deepseek-reasoner"
)

// OpenRouter model identifiers (vendor-prefixed)
const (
	ModelOpenRouterGPT4o  = "openai/gpt-4o"
	ModelOpenRouterSonnet = "anthropic/claude-3.5-sonnet"
)
