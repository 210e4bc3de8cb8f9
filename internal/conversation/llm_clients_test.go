package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

// scriptedLLMClient replays canned responses in order and records every
// request it saw. The last response repeats once the script runs out.
type scriptedLLMClient struct {
	responses []LLMResponse
	err       error
	calls     int
	requests  []LLMRequest
}

func (c *scriptedLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	c.calls++
	c.requests = append(c.requests, req)
	if c.err != nil {
		return LLMResponse{}, c.err
	}
	if len(c.responses) == 0 {
		return LLMResponse{Text: "ok"}, nil
	}
	resp := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return resp, nil
}

func TestFallbackLLMClient_PrimarySucceeds(t *testing.T) {
	primary := &scriptedLLMClient{responses: []LLMResponse{{Text: "from primary"}}}
	fallback := &scriptedLLMClient{responses: []LLMResponse{{Text: "from fallback"}}}
	client := NewFallbackLLMClient(primary, fallback, logging.Default())

	resp, err := client.Complete(context.Background(), LLMRequest{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Text != "from primary" {
		t.Fatalf("expected primary response, got %q", resp.Text)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback should not have been called, got %d calls", fallback.calls)
	}
}

func TestFallbackLLMClient_FallsBack(t *testing.T) {
	primary := &scriptedLLMClient{err: errors.New("primary down")}
	fallback := &scriptedLLMClient{responses: []LLMResponse{{Text: "from fallback"}}}
	client := NewFallbackLLMClient(primary, fallback, logging.Default())

	resp, err := client.Complete(context.Background(), LLMRequest{})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Text != "from fallback" {
		t.Fatalf("expected fallback response, got %q", resp.Text)
	}
}

func TestFallbackLLMClient_NoFallback(t *testing.T) {
	primary := &scriptedLLMClient{err: errors.New("primary down")}
	client := NewFallbackLLMClient(primary, nil, logging.Default())

	if _, err := client.Complete(context.Background(), LLMRequest{}); err == nil {
		t.Fatal("expected error when primary fails with no fallback")
	}
}

func TestRetryLLMClient_RetriesTransientErrors(t *testing.T) {
	inner := &flakyLLMClient{failures: 2, resp: LLMResponse{Text: "finally"}}
	client := NewRetryLLMClient(inner, 3, time.Millisecond, logging.Default())

	resp, err := client.Complete(context.Background(), LLMRequest{})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Text != "finally" {
		t.Fatalf("unexpected response: %q", resp.Text)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryLLMClient_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flakyLLMClient{failures: 10}
	client := NewRetryLLMClient(inner, 2, time.Millisecond, logging.Default())

	if _, err := client.Complete(context.Background(), LLMRequest{}); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", inner.calls)
	}
}

func TestRetryLLMClient_DoesNotRetryCancellation(t *testing.T) {
	inner := &scriptedLLMClient{err: context.Canceled}
	client := NewRetryLLMClient(inner, 5, time.Millisecond, logging.Default())

	if _, err := client.Complete(context.Background(), LLMRequest{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("cancellation should not retry, got %d calls", inner.calls)
	}
}

func TestTimeoutLLMClient_AppliesDeadline(t *testing.T) {
	inner := &deadlineCheckingClient{}
	client := NewTimeoutLLMClient(inner, 5*time.Second)

	if _, err := client.Complete(context.Background(), LLMRequest{}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if !inner.sawDeadline {
		t.Fatal("expected inner client to see a deadline on the context")
	}
}

type flakyLLMClient struct {
	failures int
	calls    int
	resp     LLMResponse
}

func (c *flakyLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	c.calls++
	if c.calls <= c.failures {
		return LLMResponse{}, errors.New("transient provider error")
	}
	return c.resp, nil
}

type deadlineCheckingClient struct {
	sawDeadline bool
}

func (c *deadlineCheckingClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	_, c.sawDeadline = ctx.Deadline()
	return LLMResponse{Text: "ok"}, nil
}
