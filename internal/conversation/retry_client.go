package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

// RetryLLMClient retries transient completion failures with exponential
// backoff. Attempts are bounded so a dead provider fails the turn quickly
// instead of hanging it.
type RetryLLMClient struct {
	inner       LLMClient
	maxAttempts int
	baseDelay   time.Duration
	logger      *logging.Logger
}

func NewRetryLLMClient(inner LLMClient, maxAttempts int, baseDelay time.Duration, logger *logging.Logger) *RetryLLMClient {
	if inner == nil {
		panic("conversation: inner LLM client cannot be nil")
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RetryLLMClient{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

func (c *RetryLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	var lastErr error
	delay := c.baseDelay

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Cancellation is not transient.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return LLMResponse{}, err
		}
		if attempt == c.maxAttempts {
			break
		}

		c.logger.Warn("LLM completion failed, retrying",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"delay", delay.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return LLMResponse{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return LLMResponse{}, lastErr
}
