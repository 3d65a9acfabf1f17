// Package config provides process-wide settings loaded from
// environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Price-table overrides for cost accounting

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/richinex/questbench/llm"
)

// Settings holds the environment-derived configuration shared by the
// run and benchmark commands.
type Settings struct {
	// QuestTimeout is the default per-run wall-clock budget.
	QuestTimeout time.Duration
	// MaxSteps is the default per-run step cap.
	MaxSteps int
	// MaxTokens is the default completion budget per LLM call.
	MaxTokens uint32
	// Temperature is the default sampling temperature.
	Temperature float64
	// Prices is the cost table with LLM_QUEST_PRICES_JSON applied.
	Prices *llm.PriceTable
}

// Environment variables recognized by New, beyond the provider API
// keys the llm package reads.
const (
	EnvQuestTimeout = "QUEST_TIMEOUT_SECONDS"
	EnvMaxSteps     = "QUEST_MAX_STEPS"
	EnvMaxTokens    = "LLM_MAX_TOKENS"
	EnvTemperature  = "LLM_TEMPERATURE"
	EnvPricesJSON   = "LLM_QUEST_PRICES_JSON"
)

// New loads settings from environment variables. Returns an error if
// any variable contains an invalid value.
func New() (Settings, error) {
	timeoutSecs, err := getEnvInt(EnvQuestTimeout, 120)
	if err != nil {
		return Settings{}, err
	}

	maxSteps, err := getEnvInt(EnvMaxSteps, 100)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32(EnvMaxTokens, 1024)
	if err != nil {
		return Settings{}, err
	}

	// 0.4 is the benchmark standard across providers.
	temperature, err := getEnvFloat64(EnvTemperature, 0.4)
	if err != nil {
		return Settings{}, err
	}

	prices := llm.DefaultPrices()
	if raw := os.Getenv(EnvPricesJSON); raw != "" {
		if err := prices.ApplyOverridesJSON(raw); err != nil {
			return Settings{}, fmt.Errorf("invalid %s: %w", EnvPricesJSON, err)
		}
	}

	return Settings{
		QuestTimeout: time.Duration(timeoutSecs) * time.Second,
		MaxSteps:     maxSteps,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		Prices:       prices,
	}, nil
}

// MustNew loads settings and panics on invalid values. Use this only
// when configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// APIKeyFor returns the API key for a provider from the environment.
// The random baseline needs no credentials and returns an empty key.
func APIKeyFor(provider string) (string, error) {
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return "", err
	}
	envVar := pt.EnvVar()
	if envVar == "" {
		return "", nil
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", envVar)
	}
	return key, nil
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
