package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

type fakeEngine struct {
	resp     *TurnResponse
	err      error
	lastReq  TurnRequest
	history  []Turn
	cleared  []string
	turnRuns int
}

func (f *fakeEngine) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	f.lastReq = req
	f.turnRuns++
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &TurnResponse{SessionID: req.SessionID, Reply: "ok"}, nil
}

func (f *fakeEngine) History(ctx context.Context, sessionID string) ([]Turn, error) {
	return f.history, nil
}

func (f *fakeEngine) ClearSession(ctx context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func newTestDispatcher(t *testing.T, engine Service) *Dispatcher {
	t.Helper()
	d := NewDispatcher(
		engine,
		NewMemoryQueue(16),
		logging.Default(),
		WithWorkerCount(1),
		WithReceiveBatchSize(1),
		WithReceiveWaitSeconds(0),
	)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = d.Shutdown(shutdownCtx)
	})
	return d
}

func TestDispatcher_ProcessTurnRoundTrip(t *testing.T) {
	engine := &fakeEngine{resp: &TurnResponse{SessionID: "s1", Reply: "hello back"}}
	d := newTestDispatcher(t, engine)

	resp, err := d.ProcessTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "hello"})
	if err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	if resp.Reply != "hello back" {
		t.Fatalf("unexpected reply: %q", resp.Reply)
	}
	if engine.lastReq.Message != "hello" {
		t.Fatalf("engine saw wrong request: %+v", engine.lastReq)
	}
}

func TestDispatcher_EngineErrorPropagates(t *testing.T) {
	engine := &fakeEngine{err: errors.New("engine blew up")}
	d := newTestDispatcher(t, engine)

	if _, err := d.ProcessTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "hi"}); err == nil {
		t.Fatal("expected engine error to reach the caller")
	}
}

func TestDispatcher_CallerContextCancellation(t *testing.T) {
	block := make(chan struct{})
	engine := &blockingEngine{block: block}
	d := newTestDispatcher(t, engine)
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := d.ProcessTurn(ctx, TurnRequest{SessionID: "s1", Message: "hi"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcher_ReadsBypassQueue(t *testing.T) {
	engine := &fakeEngine{history: []Turn{{Role: RoleUser, Content: "hi"}}}
	d := newTestDispatcher(t, engine)

	turns, err := d.History(context.Background(), "s1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("unexpected history: %#v", turns)
	}

	if err := d.ClearSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	if len(engine.cleared) != 1 || engine.cleared[0] != "s1" {
		t.Fatalf("clear not forwarded: %#v", engine.cleared)
	}
}

func TestDispatcher_ShutdownStopsWorkers(t *testing.T) {
	engine := &fakeEngine{}
	d := NewDispatcher(engine, NewMemoryQueue(16), logging.Default(), WithWorkerCount(2))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

type blockingEngine struct {
	block chan struct{}
}

func (b *blockingEngine) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	<-b.block
	return &TurnResponse{}, nil
}

func (b *blockingEngine) History(ctx context.Context, sessionID string) ([]Turn, error) {
	return nil, nil
}

func (b *blockingEngine) ClearSession(ctx context.Context, sessionID string) error {
	return nil
}
