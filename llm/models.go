// Package llm provides shared data models for LLM providers.
package llm

// Finish reasons reported on completions.
const (
	// FinishStop is a normal completion.
	FinishStop = "stop"
	// FinishEmpty marks a degenerate reply whose content was absent or
	// null. The caller decides how to react; the adapter never panics
	// on it.
	FinishEmpty = "empty"
)

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// LLMResponse represents a raw response from a provider adapter.
type LLMResponse struct {
	Content      string
	Usage        *TokenUsage
	FinishReason string
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}

// Add accumulates another usage sample into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Completion is the result of a Client.Complete call: the raw content
// plus accounting derived from the price table.
type Completion struct {
	Content      string     `json:"content"`
	Usage        TokenUsage `json:"usage"`
	CostUSD      float64    `json:"cost_usd"`
	FinishReason string     `json:"finish_reason"`
}
