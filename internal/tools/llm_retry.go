package tools

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
)

// LLMRetryConfig configures retry behavior for LLM calls.
type LLMRetryConfig struct {
	MaxAttempts       int           `json:"max_attempts"`        // total attempts, including the first
	RetryDelay        time.Duration `json:"retry_delay"`         // base delay, scaled linearly per attempt
	TimeoutPerAttempt time.Duration `json:"timeout_per_attempt"` // per-attempt deadline
}

// DefaultLLMRetryConfig returns the default retry policy: three attempts
// total with a linearly growing delay between them.
func DefaultLLMRetryConfig() LLMRetryConfig {
	return LLMRetryConfig{
		MaxAttempts:       3,
		RetryDelay:        time.Second,
		TimeoutPerAttempt: 60 * time.Second,
	}
}

// LLMRetryWrapper wraps an LLM with retry logic for transient failures.
// Client-side errors abort immediately since resending the same request
// cannot fix them.
type LLMRetryWrapper struct {
	llm    llms.Model
	config LLMRetryConfig
	logger zerolog.Logger
}

// NewLLMRetryWrapper creates a retry wrapper around an LLM.
func NewLLMRetryWrapper(llm llms.Model, config LLMRetryConfig, logger zerolog.Logger) *LLMRetryWrapper {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &LLMRetryWrapper{
		llm:    llm,
		config: config,
		logger: logger,
	}
}

// GenerateContent calls the LLM, retrying transient failures. The delay
// before retry N is N times the base delay.
func (w *LLMRetryWrapper) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, w.config.TimeoutPerAttempt)
		response, err := w.llm.GenerateContent(attemptCtx, messages, options...)
		cancel()

		if err == nil {
			if attempt > 1 {
				w.logger.Debug().Int("attempt", attempt).Msg("llm call recovered")
			}
			return response, nil
		}
		lastErr = err

		if attempt >= w.config.MaxAttempts {
			break
		}

		if !isRetryableError(err) {
			w.logger.Warn().Err(err).Msg("llm error is not retryable")
			break
		}

		delay := time.Duration(attempt) * w.config.RetryDelay
		w.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", w.config.MaxAttempts).
			Dur("delay", delay).
			Msg("llm call failed, retrying")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("llm call failed after %d attempts: %w", w.config.MaxAttempts, lastErr)
}

// isRetryableError reports whether an error is worth retrying: server-side
// and network failures are, client-side request errors are not.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Client-side errors first: a 4xx means our request is wrong and
	// retrying the same payload cannot succeed. 429 is the exception.
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") {
		return true
	}
	for _, code := range []string{"400", "401", "403", "404", "422"} {
		if strings.Contains(errStr, code) {
			return false
		}
	}

	if strings.Contains(errStr, "context deadline exceeded") {
		return true
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "temporary failure") {
		return true
	}

	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "server error") ||
		strings.Contains(errStr, "service unavailable") {
		return true
	}

	if netErr, ok := err.(net.Error); ok {
		return netErr.Timeout()
	}
	if urlErr, ok := err.(*url.Error); ok {
		return isRetryableError(urlErr.Err)
	}

	return false
}
