package conversation

import (
	"context"
	"time"
)

// TimeoutLLMClient bounds every completion call with a deadline so a stalled
// provider cannot hold a turn open indefinitely.
type TimeoutLLMClient struct {
	inner   LLMClient
	timeout time.Duration
}

func NewTimeoutLLMClient(inner LLMClient, timeout time.Duration) *TimeoutLLMClient {
	if inner == nil {
		panic("conversation: inner LLM client cannot be nil")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TimeoutLLMClient{inner: inner, timeout: timeout}
}

func (c *TimeoutLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Complete(callCtx, req)
}
