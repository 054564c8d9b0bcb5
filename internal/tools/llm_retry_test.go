package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
)

// fakeLLM fails a configured number of times before answering.
type fakeLLM struct {
	calls    int
	failures int
	err      error
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "hello"}},
	}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func fastRetryConfig() LLMRetryConfig {
	return LLMRetryConfig{
		MaxAttempts:       3,
		RetryDelay:        time.Millisecond,
		TimeoutPerAttempt: time.Second,
	}
}

func testMessages() []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hi"),
	}
}

func TestLLMRetry_SucceedsAfterTransientFailures(t *testing.T) {
	llm := &fakeLLM{failures: 2, err: errors.New("503 service unavailable")}
	wrapper := NewLLMRetryWrapper(llm, fastRetryConfig(), zerolog.Nop())

	resp, err := wrapper.GenerateContent(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if llm.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", llm.calls)
	}
	if resp.Choices[0].Content != "hello" {
		t.Errorf("unexpected content %q", resp.Choices[0].Content)
	}
}

func TestLLMRetry_StopsAtMaxAttempts(t *testing.T) {
	llm := &fakeLLM{failures: 10, err: errors.New("500 internal server error")}
	wrapper := NewLLMRetryWrapper(llm, fastRetryConfig(), zerolog.Nop())

	_, err := wrapper.GenerateContent(context.Background(), testMessages())
	if err == nil {
		t.Fatal("expected failure after retries exhausted")
	}
	if llm.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", llm.calls)
	}
}

func TestLLMRetry_ClientErrorAbortsImmediately(t *testing.T) {
	llm := &fakeLLM{failures: 10, err: errors.New("API returned unexpected status code: 401 invalid api key")}
	wrapper := NewLLMRetryWrapper(llm, fastRetryConfig(), zerolog.Nop())

	_, err := wrapper.GenerateContent(context.Background(), testMessages())
	if err == nil {
		t.Fatal("expected error")
	}
	if llm.calls != 1 {
		t.Errorf("4xx must not retry, got %d attempts", llm.calls)
	}
}

func TestLLMRetry_RateLimitRetries(t *testing.T) {
	llm := &fakeLLM{failures: 1, err: errors.New("429 rate limit exceeded")}
	wrapper := NewLLMRetryWrapper(llm, fastRetryConfig(), zerolog.Nop())

	_, err := wrapper.GenerateContent(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("429 should be retried, got %v", err)
	}
	if llm.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", llm.calls)
	}
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err       string
		retryable bool
	}{
		{"503 service unavailable", true},
		{"connection refused", true},
		{"context deadline exceeded", true},
		{"rate limit exceeded", true},
		{"400 bad request", false},
		{"401 unauthorized", false},
		{"404 not found", false},
		{"model does not exist", false},
	}

	for _, tc := range cases {
		if got := isRetryableError(errors.New(tc.err)); got != tc.retryable {
			t.Errorf("isRetryableError(%q) = %v, want %v", tc.err, got, tc.retryable)
		}
	}
}
