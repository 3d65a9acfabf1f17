package json

import (
	"strings"
	"testing"
)

type TestStruct struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestPureJSON(t *testing.T) {
	response := `{"name": "test", "value": 42}`
	result, err := ExtractJSONFromResponse[TestStruct](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Name != "test" {
		t.Errorf("expected name 'test', got '%s'", result.Name)
	}
	if result.Value != 42 {
		t.Errorf("expected value 42, got %d", result.Value)
	}
}

func TestJSONWithPrefix(t *testing.T) {
	response := `Here is the result: {"name": "test", "value": 42}`
	result, err := ExtractJSONFromResponse[TestStruct](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Name != "test" {
		t.Errorf("expected name 'test', got '%s'", result.Name)
	}
	if result.Value != 42 {
		t.Errorf("expected value 42, got %d", result.Value)
	}
}

func TestJSONWithSuffix(t *testing.T) {
	response := `{"name": "test", "value": 42} That's the output.`
	result, err := ExtractJSONFromResponse[TestStruct](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Name != "test" {
		t.Errorf("expected name 'test', got '%s'", result.Name)
	}
	if result.Value != 42 {
		t.Errorf("expected value 42, got %d", result.Value)
	}
}

func TestJSONWithBoth(t *testing.T) {
	response := `Let me think... {"name": "test", "value": 42} Done!`
	result, err := ExtractJSONFromResponse[TestStruct](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Name != "test" {
		t.Errorf("expected name 'test', got '%s'", result.Name)
	}
	if result.Value != 42 {
		t.Errorf("expected value 42, got %d", result.Value)
	}
}

func TestNoJSON(t *testing.T) {
	response := "This is just plain text without any JSON."
	_, err := ExtractJSONFromResponse[TestStruct](response)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	// Error should contain a preview of the response
	if !strings.Contains(err.Error(), "failed to extract valid JSON") {
		t.Errorf("expected 'failed to extract valid JSON' in error, got: %v", err)
	}
}

func TestInvalidJSON(t *testing.T) {
	response := `{"name": "test", value: }`
	_, err := ExtractJSONFromResponse[TestStruct](response)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestMarkdownFencedJSON(t *testing.T) {
	response := "```json\n{\"name\": \"test\", \"value\": 42}\n```"
	result, err := ExtractJSONFromResponse[TestStruct](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Value != 42 {
		t.Errorf("expected value 42, got %d", result.Value)
	}
}

func TestRecoverIntFromTruncated(t *testing.T) {
	response := `{"reasoning": "go left because", "result": 2, "extra`
	v, ok := RecoverInt(response, "result")
	if !ok {
		t.Fatal("expected to recover result field")
	}
	if v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
}

func TestRecoverIntMissing(t *testing.T) {
	if _, ok := RecoverInt(`{"reasoning": "hmm"}`, "result"); ok {
		t.Error("expected no recovery for missing field")
	}
}

func TestRecoverStringComplete(t *testing.T) {
	response := `{"analysis": "two doors, left is lit", "result"`
	s, ok := RecoverString(response, "analysis")
	if !ok {
		t.Fatal("expected to recover analysis field")
	}
	if s != "two doors, left is lit" {
		t.Errorf("unexpected value: %q", s)
	}
}

func TestRecoverStringTruncated(t *testing.T) {
	response := `{"reasoning": "the guard mentioned the pass`
	s, ok := RecoverString(response, "reasoning")
	if !ok {
		t.Fatal("expected to recover truncated string")
	}
	if s != "the guard mentioned the pass" {
		t.Errorf("unexpected value: %q", s)
	}
}

func TestRecoverStringEscapes(t *testing.T) {
	response := `{"reasoning": "first line\nsecond \"quoted\""}`
	s, ok := RecoverString(response, "reasoning")
	if !ok {
		t.Fatal("expected to recover string")
	}
	if s != "first line\nsecond \"quoted\"" {
		t.Errorf("unexpected value: %q", s)
	}
}
