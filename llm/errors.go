// Provider failure classification. Retry decisions key off a small
// taxonomy: transport trouble and rate limiting are worth retrying,
// authentication failures and safety refusals never are.

package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	ErrKindRateLimit ErrorKind = "rate_limit"
	ErrKindTimeout   ErrorKind = "timeout"
	ErrKindServer    ErrorKind = "server"
	ErrKindTransport ErrorKind = "transport"
	ErrKindAuth      ErrorKind = "auth"
	ErrKindSafety    ErrorKind = "safety"
	ErrKindInvalid   ErrorKind = "invalid_request"
	ErrKindUnknown   ErrorKind = "unknown"
)

// Classify maps a provider error to its kind. Typed errors from the
// OpenAI-compatible client (OpenAI, DeepSeek, OpenRouter) are inspected
// by status code; everything else falls back to message hints, since
// the remaining SDKs tunnel status information through error text.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrKindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrKindTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return ErrKindAuth
		case 408:
			return ErrKindTimeout
		case 429:
			return ErrKindRateLimit
		case 500, 502, 503, 504:
			return ErrKindServer
		case 400, 404, 422:
			if hintsSafety(apiErr.Message) {
				return ErrKindSafety
			}
			return ErrKindInvalid
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrKindTransport
	}

	return classifyByMessage(err.Error())
}

// classifyByMessage refines classification when no typed error is
// available and providers tunnel failures in text.
func classifyByMessage(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case hintsSafety(lower):
		return ErrKindSafety
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") ||
		strings.Contains(lower, "quota"):
		return ErrKindRateLimit
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "api key") ||
		strings.Contains(lower, "authentication") || strings.Contains(lower, "permission"):
		return ErrKindAuth
	case strings.Contains(lower, "overloaded") || strings.Contains(lower, "unavailable") ||
		strings.Contains(lower, "internal server") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503"):
		return ErrKindServer
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return ErrKindTimeout
	case strings.Contains(lower, "connection") || strings.Contains(lower, "broken pipe") ||
		strings.Contains(lower, "eof"):
		return ErrKindTransport
	default:
		return ErrKindUnknown
	}
}

func hintsSafety(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "content filter") ||
		strings.Contains(lower, "safety") ||
		strings.Contains(lower, "blocked")
}

// Retryable reports whether a failure is worth another attempt.
// Provider-side timeouts count as transient; the caller's own context
// expiring does not, since retrying against a dead deadline only burns
// the backoff budget.
func Retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	switch Classify(err) {
	case ErrKindRateLimit, ErrKindServer, ErrKindTransport, ErrKindTimeout:
		return true
	default:
		return false
	}
}
