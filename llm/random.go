// Random baseline provider. Performs no network I/O: it scans the
// prompt for the numbered choice list and replies with a uniformly
// random valid index. With a fixed seed the reply sequence is
// reproducible, which makes it the canonical baseline for benchmarks.

package llm

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var choiceLinePattern = regexp.MustCompile(`(?m)^\s*(\d+)\.\s`)

// RandomProvider implements the Provider interface without an LLM.
type RandomProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomProvider creates a random provider with a deterministic seed.
func NewRandomProvider(seed int64) *RandomProvider {
	return &RandomProvider{rng: rand.New(rand.NewSource(seed))}
}

// Name returns the provider name.
func (p *RandomProvider) Name() string {
	return "random_local"
}

// Model returns the pseudo-model identifier.
func (p *RandomProvider) Model() string {
	return "random"
}

// Chat picks a random index from the numbered choices in the last user
// message and replies in the structured decision format.
func (p *RandomProvider) Chat(_ context.Context, messages []ChatMessage) (LLMResponse, error) {
	n := countChoices(messages)
	if n < 1 {
		return LLMResponse{}, fmt.Errorf("no numbered choices found in prompt")
	}

	p.mu.Lock()
	k := p.rng.Intn(n) + 1
	p.mu.Unlock()

	content := fmt.Sprintf(`{"reasoning": "random baseline", "result": %d}`, k)
	return LLMResponse{
		Content:      content,
		Usage:        &TokenUsage{},
		FinishReason: FinishStop,
	}, nil
}

// countChoices finds the highest leading index of a "N. choice" line in
// the most recent user message.
func countChoices(messages []ChatMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		max := 0
		for _, m := range choiceLinePattern.FindAllStringSubmatch(messages[i].Content, -1) {
			if v, err := strconv.Atoi(strings.TrimSpace(m[1])); err == nil && v > max {
				max = v
			}
		}
		if max > 0 {
			return max
		}
	}
	return 0
}

// Verify RandomProvider implements Provider
var _ Provider = (*RandomProvider)(nil)
