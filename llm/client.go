// Client wraps a Provider with retry, backoff and cost accounting.
//
// Retry policy: transport errors and rate-limit signals are retried
// with capped exponential backoff and deterministic jitter; auth
// failures and safety refusals are surfaced immediately. The caller's
// context deadline bounds the whole call including backoff sleeps.

package llm

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/zeebo/blake3"
)

const defaultMaxAttempts = 3

// BackoffConfig configures retry delays.
type BackoffConfig struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultBackoff returns the default retry delay configuration.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 500 * time.Millisecond,
		Factor:       2.0,
		MaxDelay:     10 * time.Second,
		Jitter:       true,
	}
}

// DelayForAttempt computes the sleep before retry `attempt` (1-indexed:
// the first retry is attempt 1). Jitter is derived from the seed string
// so identical inputs produce identical schedules.
func DelayForAttempt(attempt int, cfg BackoffConfig, jitterSeed string) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}

	base := float64(cfg.InitialDelay) * math.Pow(cfg.Factor, float64(attempt-1))
	if cfg.MaxDelay > 0 {
		base = math.Min(base, float64(cfg.MaxDelay))
	}

	if cfg.Jitter {
		base *= 0.5 + jitterUnit(jitterSeed) // [0.5, 1.5]
	}

	if base < 0 {
		base = 0
	}
	return time.Duration(base)
}

func jitterUnit(seed string) float64 {
	sum := blake3.Sum256([]byte(seed))
	u := binary.BigEndian.Uint64(sum[:8])
	return float64(u) / float64(^uint64(0))
}

// Client is the uniform completion surface used by agents.
type Client struct {
	provider    Provider
	maxAttempts int
	backoff     BackoffConfig
	prices      *PriceTable
}

// NewClient creates a client around a provider with default retry and
// pricing configuration.
func NewClient(provider Provider) *Client {
	return &Client{
		provider:    provider,
		maxAttempts: defaultMaxAttempts,
		backoff:     DefaultBackoff(),
		prices:      DefaultPrices(),
	}
}

// WithMaxAttempts sets the total attempt budget per Complete call.
func (c *Client) WithMaxAttempts(n int) *Client {
	if n > 0 {
		c.maxAttempts = n
	}
	return c
}

// WithBackoff sets the retry delay configuration.
func (c *Client) WithBackoff(cfg BackoffConfig) *Client {
	c.backoff = cfg
	return c
}

// WithPrices sets the price table used for cost accounting.
func (c *Client) WithPrices(t *PriceTable) *Client {
	if t != nil {
		c.prices = t
	}
	return c
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Complete sends a chat completion and returns the content with usage
// and cost. An empty or null reply is returned as Content == "" with
// FinishReason "empty"; the caller decides how to react.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (Completion, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.provider.Chat(ctx, messages)
		if err == nil {
			usage := TokenUsage{}
			if resp.Usage != nil {
				usage = *resp.Usage
			}
			finish := resp.FinishReason
			if resp.Content == "" {
				finish = FinishEmpty
			}
			return Completion{
				Content:      resp.Content,
				Usage:        usage,
				CostUSD:      c.prices.Cost(c.provider.Model(), usage),
				FinishReason: finish,
			}, nil
		}

		lastErr = err
		if !Retryable(err) || attempt == c.maxAttempts {
			break
		}

		seed := fmt.Sprintf("%s:%s:%d", c.provider.Name(), c.provider.Model(), attempt)
		delay := DelayForAttempt(attempt, c.backoff, seed)
		select {
		case <-ctx.Done():
			return Completion{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	return Completion{}, fmt.Errorf("%s completion failed (%s): %w",
		c.provider.Name(), Classify(lastErr), lastErr)
}
