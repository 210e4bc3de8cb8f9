package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/mediconnect/assistant-platform/internal/observability/metrics"
	"github.com/mediconnect/assistant-platform/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var engineTracer = otel.Tracer("mediconnect.internal.conversation.engine")

// apologyReply is emitted when synthesis or summarization fails outright.
// The turn still completes and the session stays usable.
const apologyReply = "I'm sorry, something went wrong on my end while preparing your " +
	"answer. Please try asking again in a moment."

// TurnRecord is the flattened view of a completed turn handed to persistence
// and archival sinks.
type TurnRecord struct {
	SessionID   string
	UserMessage string
	Reply       string
	FollowUp    string
	Intent      Intent
	Urgency     Urgency
	RiskLevel   RiskLevel
	Timestamp   time.Time
}

// TurnRecorder persists turn records durably, for audit and analytics.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, record TurnRecord) error
}

// TurnArchiver writes turn records to long-term cold storage.
type TurnArchiver interface {
	ArchiveTurn(ctx context.Context, record TurnRecord) error
}

// Engine wires the pipeline stages together and owns the turn lifecycle:
// classify, optionally retrieve, synthesize, optionally follow up, persist.
// Terminal intents short-circuit to canned responses before any generative
// stage runs.
type Engine struct {
	classifier  *Classifier
	retriever   *KnowledgeRetriever
	synthesizer *ResponseSynthesizer
	followups   *FollowupGenerator
	summarizer  *DocumentSummarizer
	sessions    SessionStore
	guard       *OutputGuard
	recorder    TurnRecorder
	archiver    TurnArchiver
	metrics     *metrics.PipelineMetrics
	logger      *logging.Logger

	locks sync.Map // sessionID -> *sync.Mutex
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithTurnRecorder attaches a durable turn sink.
func WithTurnRecorder(recorder TurnRecorder) EngineOption {
	return func(e *Engine) { e.recorder = recorder }
}

// WithTurnArchiver attaches a cold-storage sink.
func WithTurnArchiver(archiver TurnArchiver) EngineOption {
	return func(e *Engine) { e.archiver = archiver }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(
	classifier *Classifier,
	retriever *KnowledgeRetriever,
	synthesizer *ResponseSynthesizer,
	followups *FollowupGenerator,
	summarizer *DocumentSummarizer,
	sessions SessionStore,
	guard *OutputGuard,
	logger *logging.Logger,
	opts ...EngineOption,
) *Engine {
	if classifier == nil {
		panic("conversation: classifier cannot be nil")
	}
	if retriever == nil {
		panic("conversation: retriever cannot be nil")
	}
	if synthesizer == nil {
		panic("conversation: synthesizer cannot be nil")
	}
	if followups == nil {
		panic("conversation: followup generator cannot be nil")
	}
	if summarizer == nil {
		panic("conversation: summarizer cannot be nil")
	}
	if sessions == nil {
		panic("conversation: session store cannot be nil")
	}
	if guard == nil {
		guard = NewOutputGuard(logger)
	}
	if logger == nil {
		logger = logging.Default()
	}

	e := &Engine{
		classifier:  classifier,
		retriever:   retriever,
		synthesizer: synthesizer,
		followups:   followups,
		summarizer:  summarizer,
		sessions:    sessions,
		guard:       guard,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessTurn handles one inbound message. Turns within a session run
// strictly one at a time; different sessions proceed in parallel.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, errors.New("conversation: session id is required")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, errors.New("conversation: message is required")
	}

	lock := e.lockForSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := engineTracer.Start(ctx, "conversation.turn")
	defer span.End()
	span.SetAttributes(attribute.String("mediconnect.session_id", sessionID))

	session, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	classifyStart := time.Now()
	cls := e.classifier.Classify(ctx, message, session.Turns)
	e.metrics.ObserveStageLatency("classify", time.Since(classifyStart))
	span.SetAttributes(
		attribute.String("mediconnect.intent", string(cls.Intent)),
		attribute.String("mediconnect.urgency", string(cls.Urgency)),
	)

	reply, followup, sources, outcome := e.respond(ctx, message, cls, session)

	reply = e.guard.Review(reply)
	now := time.Now().UTC()

	assistantContent := reply
	if followup != "" {
		assistantContent = reply + "\n\n" + followup
		session.AskedFollowups = append(session.AskedFollowups, followup)
	}
	session.Turns = append(session.Turns,
		Turn{Role: RoleUser, Content: message, Timestamp: now},
		Turn{Role: RoleAssistant, Content: assistantContent, Timestamp: now},
	)
	if err := e.sessions.Save(ctx, session); err != nil {
		span.RecordError(err)
		return nil, err
	}

	e.metrics.ObserveTurn(string(cls.Intent), outcome)
	e.sink(ctx, TurnRecord{
		SessionID:   sessionID,
		UserMessage: message,
		Reply:       reply,
		FollowUp:    followup,
		Intent:      cls.Intent,
		Urgency:     cls.Urgency,
		RiskLevel:   cls.RiskLevel,
		Timestamp:   now,
	})

	return &TurnResponse{
		SessionID:      sessionID,
		Reply:          reply,
		FollowUp:       followup,
		Classification: cls,
		Sources:        sources,
		Timestamp:      now,
	}, nil
}

// respond runs the generative stages for one classified message and returns
// the reply, an optional follow-up, the sources used, and the outcome label
// for metrics.
func (e *Engine) respond(ctx context.Context, message string, cls Classification, session *Session) (string, string, []Source, string) {
	if canned, ok := CannedResponse(cls.Intent); ok {
		return canned, "", nil, "canned"
	}

	var reply string
	var sources []Source
	outcome := "synthesized"

	switch {
	case cls.NextAgent == AgentDocSummarizer || cls.RequiredResources.SummarizationNeeded:
		summaryStart := time.Now()
		summary, err := e.summarizer.Summarize(ctx, message)
		e.metrics.ObserveStageLatency("summarize", time.Since(summaryStart))
		if err != nil {
			e.logger.Error("document summarization failed", "session_id", session.ID, "error", err.Error())
			e.metrics.ObserveFallback("summarize")
			return apologyReply, "", nil, "apology"
		}
		reply = summary
		outcome = "summarized"

	default:
		retrieval := NotFoundResult()
		if cls.RequiredResources.RAGNeeded {
			retrieveStart := time.Now()
			retrieval = e.retriever.Retrieve(ctx, message, cls)
			e.metrics.ObserveStageLatency("retrieve", time.Since(retrieveStart))
			if retrieval.Empty() {
				e.metrics.ObserveRetrievalEmpty()
			}
		}

		synthStart := time.Now()
		synthesized, err := e.synthesizer.Synthesize(ctx, message, cls, retrieval, session.Turns)
		e.metrics.ObserveStageLatency("synthesize", time.Since(synthStart))
		if err != nil {
			e.logger.Error("response synthesis failed", "session_id", session.ID, "error", err.Error())
			e.metrics.ObserveFallback("synthesize")
			return apologyReply, "", nil, "apology"
		}
		reply = synthesized
		sources = retrieval.Sources
	}

	if cls.Intent.SuppressesFollowup() {
		return reply, "", sources, outcome
	}

	followupStart := time.Now()
	followup, err := e.followups.Generate(ctx, message, reply, session.AskedFollowups)
	e.metrics.ObserveStageLatency("followup", time.Since(followupStart))
	if err != nil {
		// A failed follow-up never fails the turn.
		e.logger.Warn("followup generation failed", "session_id", session.ID, "error", err.Error())
		e.metrics.ObserveFallback("followup")
		followup = ""
	}
	return reply, followup, sources, outcome
}

func (e *Engine) sink(ctx context.Context, record TurnRecord) {
	if e.recorder != nil {
		if err := e.recorder.RecordTurn(ctx, record); err != nil {
			e.logger.Error("failed to record turn", "session_id", record.SessionID, "error", err.Error())
		}
	}
	if e.archiver != nil {
		if err := e.archiver.ArchiveTurn(ctx, record); err != nil {
			e.logger.Error("failed to archive turn", "session_id", record.SessionID, "error", err.Error())
		}
	}
}

// History returns the transcript for a session. Unknown sessions yield an
// empty transcript, matching their implicit-creation semantics.
func (e *Engine) History(ctx context.Context, sessionID string) ([]Turn, error) {
	session, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Turns, nil
}

// ClearSession removes all state for a session.
func (e *Engine) ClearSession(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

func (e *Engine) lockForSession(sessionID string) *sync.Mutex {
	lockAny, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return lockAny.(*sync.Mutex)
}
