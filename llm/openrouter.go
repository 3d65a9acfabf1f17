// OpenRouter Provider - OpenAI-compatible aggregator endpoint.
// Model identifiers are vendor-prefixed (e.g. "anthropic/claude-3.5-sonnet").

package llm

const openrouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates a new OpenRouter provider.
func NewOpenRouterProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return newOpenAICompatibleProvider("openrouter", openrouterBaseURL, apiKey, model, maxTokens, temperature)
}
