package llm

import (
	"context"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		msg    string
		want   ErrorKind
	}{
		{401, "bad key", ErrKindAuth},
		{403, "forbidden", ErrKindAuth},
		{408, "timeout", ErrKindTimeout},
		{429, "slow down", ErrKindRateLimit},
		{500, "oops", ErrKindServer},
		{503, "overloaded", ErrKindServer},
		{400, "bad request", ErrKindInvalid},
		{400, "blocked by content filter", ErrKindSafety},
	}
	for _, tc := range cases {
		err := &openai.APIError{HTTPStatusCode: tc.status, Message: tc.msg}
		if got := Classify(fmt.Errorf("call failed: %w", err)); got != tc.want {
			t.Errorf("status %d %q: expected %s, got %s", tc.status, tc.msg, tc.want, got)
		}
	}
}

func TestClassifyContextErrors(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got != ErrKindTimeout {
		t.Errorf("deadline: expected timeout, got %s", got)
	}
	if got := Classify(context.Canceled); got != ErrKindTimeout {
		t.Errorf("cancel: expected timeout, got %s", got)
	}
}

func TestClassifyMessageHints(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{"Rate limit exceeded, retry later", ErrKindRateLimit},
		{"invalid API key provided", ErrKindAuth},
		{"model is overloaded", ErrKindServer},
		{"connection refused", ErrKindTransport},
		{"unexpected EOF", ErrKindTransport},
		{"response blocked by safety settings", ErrKindSafety},
		{"something odd", ErrKindUnknown},
	}
	for _, tc := range cases {
		if got := Classify(fmt.Errorf("%s", tc.msg)); got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.msg, tc.want, got)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("rate limit")) {
		t.Error("rate limit should be retryable")
	}
	if !Retryable(fmt.Errorf("connection reset")) {
		t.Error("transport errors should be retryable")
	}
	if !Retryable(&openai.APIError{HTTPStatusCode: 408, Message: "request timeout"}) {
		t.Error("provider-side timeouts should be retryable")
	}
	if !Retryable(fmt.Errorf("request timed out")) {
		t.Error("timeout message hints should be retryable")
	}
	if Retryable(fmt.Errorf("invalid api key")) {
		t.Error("auth failures should not be retryable")
	}
	if Retryable(context.DeadlineExceeded) {
		t.Error("the caller's own deadline should not be retried")
	}
	if Retryable(context.Canceled) {
		t.Error("cancellation should not be retried")
	}
}
