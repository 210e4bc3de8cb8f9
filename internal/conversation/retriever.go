package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/mediconnect/assistant-platform/pkg/logging"
	"go.opentelemetry.io/otel"
)

var retrieverTracer = otel.Tracer("mediconnect.internal.conversation.retriever")

// KnowledgeRetriever turns a classified message into attributed evidence for
// synthesis. It never returns an error: retrieval failures degrade to the
// not-found sentinel so a flaky store cannot take down a turn, and the
// emptiness of Sources stays the single signal synthesis keys on.
type KnowledgeRetriever struct {
	rag      RAGRetriever
	static   *StaticKnowledge
	corpusID string
	topK     int
	logger   *logging.Logger
}

func NewKnowledgeRetriever(rag RAGRetriever, static *StaticKnowledge, corpusID string, topK int, logger *logging.Logger) *KnowledgeRetriever {
	if rag == nil {
		panic("conversation: rag retriever cannot be nil")
	}
	if topK <= 0 {
		topK = 10
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &KnowledgeRetriever{
		rag:      rag,
		static:   static,
		corpusID: corpusID,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve fetches evidence for the message. Sources is empty if and only if
// nothing usable was found.
func (r *KnowledgeRetriever) Retrieve(ctx context.Context, message string, cls Classification) RetrievalResult {
	ctx, span := retrieverTracer.Start(ctx, "conversation.retrieve")
	defer span.End()

	query := augmentQuery(message, cls)

	sources, err := r.rag.Query(ctx, r.corpusID, query, r.topK)
	if err != nil {
		r.logger.Warn("knowledge retrieval failed, degrading to not-found",
			"corpus_id", r.corpusID,
			"error", err.Error(),
		)
		sources = nil
	}

	if len(sources) == 0 {
		sources = r.static.SourcesFor(cls.Intent)
	}
	if len(sources) == 0 {
		return NotFoundResult()
	}

	return RetrievalResult{
		Answer:  formatEvidence(sources),
		Sources: sources,
	}
}

// augmentQuery folds classifier-extracted symptoms into the retrieval query
// so short messages like "it still hurts" land near the right documents.
func augmentQuery(message string, cls Classification) string {
	if len(cls.Symptoms) == 0 {
		return message
	}
	var builder strings.Builder
	builder.WriteString(message)
	builder.WriteString("\nSymptoms: ")
	builder.WriteString(strings.Join(cls.Symptoms, ", "))
	return builder.String()
}

func formatEvidence(sources []Source) string {
	var builder strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&builder, "%d. [%s] %s\n", i+1, src.SourceID, src.Snippet)
	}
	return strings.TrimSpace(builder.String())
}
