// Per-model price table for cost accounting. Rates are USD per million
// tokens, split into prompt and completion rates. The lookup is pure;
// overrides come from configuration at startup and the table is
// read-only afterwards.

package llm

import (
	"encoding/json"
	"fmt"
)

// ModelPrice holds the USD rates per million tokens for one model.
type ModelPrice struct {
	PromptUSDPerMTok     float64 `json:"prompt"`
	CompletionUSDPerMTok float64 `json:"completion"`
}

// PriceTable maps model identifiers to their rates.
type PriceTable struct {
	prices map[string]ModelPrice
}

// DefaultPrices returns the built-in price table.
func DefaultPrices() *PriceTable {
	return &PriceTable{prices: map[string]ModelPrice{
		ModelOpenAIGPT4o:            {2.50, 10.00},
		ModelOpenAIGPT4oMini:        {0.15, 0.60},
		ModelOpenAIO3Mini:           {1.10, 4.40},
		ModelAnthropicClaudeSonnet4: {3.00, 15.00},
		ModelAnthropicClaudeHaiku4:  {1.00, 5.00},
		ModelGoogleGeminiFlash2:     {0.10, 0.40},
		ModelGoogleGeminiPro2:       {1.25, 5.00},
		ModelDeepSeekChat:           {0.27, 1.10},
		ModelDeepSeekReasoner:       {0.55, 2.19},
		ModelOpenRouterGPT4o:        {2.50, 10.00},
		ModelOpenRouterSonnet:       {3.00, 15.00},
	}}
}

// ApplyOverridesJSON merges a JSON document of the shape
// {"model": {"prompt": rate, "completion": rate}, ...} into the table.
// Used for the LLM_QUEST_PRICES_JSON environment override.
func (t *PriceTable) ApplyOverridesJSON(raw string) error {
	if raw == "" {
		return nil
	}
	var overrides map[string]ModelPrice
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return fmt.Errorf("invalid price overrides: %w", err)
	}
	for model, price := range overrides {
		t.prices[model] = price
	}
	return nil
}

// Lookup returns the price entry for a model.
func (t *PriceTable) Lookup(model string) (ModelPrice, bool) {
	p, ok := t.prices[model]
	return p, ok
}

// Cost computes the USD cost of one call. Unknown models cost zero;
// the random baseline and unpriced models simply do not contribute.
func (t *PriceTable) Cost(model string, usage TokenUsage) float64 {
	p, ok := t.prices[model]
	if !ok {
		return 0
	}
	const mtok = 1_000_000
	return float64(usage.PromptTokens)*p.PromptUSDPerMTok/mtok +
		float64(usage.CompletionTokens)*p.CompletionUSDPerMTok/mtok
}
