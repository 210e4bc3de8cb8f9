package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/mediconnect/assistant-platform/pkg/logging"
	"go.opentelemetry.io/otel"
)

var summarizerTracer = otel.Tracer("mediconnect.internal.conversation.summarizer")

const summarizerSystemPrompt = `You summarize a patient's medical document for them in plain language.
Structure the summary under exactly these headings, in this order:

Symptoms and Tests
Diagnosis
Treatments
Recommendations
Health Status Assessment
Doctor Recommendation

Report only what the document says; write "Not mentioned in the document"
under a heading the document does not cover. Do not add medical advice of
your own, and do not speculate beyond the text.`

const summaryDisclaimer = "Disclaimer: This summary is generated automatically and " +
	"is not a medical opinion. Please review the original document with your doctor."

// concerningTerms is a coarse screen for findings that should push the
// patient toward a doctor visit regardless of the model's framing.
var concerningTerms = []string{
	"malignant", "tumor", "carcinoma", "metasta", "abnormal", "elevated",
	"critical", "positive for", "severe", "urgent", "biopsy",
}

// DocumentSummarizer handles messages carrying a document body instead of a
// question.
type DocumentSummarizer struct {
	llm    LLMClient
	model  string
	logger *logging.Logger
}

func NewDocumentSummarizer(llm LLMClient, model string, logger *logging.Logger) *DocumentSummarizer {
	if llm == nil {
		panic("conversation: summarizer LLM client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DocumentSummarizer{llm: llm, model: model, logger: logger}
}

// Summarize produces the structured plain-language summary of a document.
// The disclaimer line is appended outside the model's control.
func (s *DocumentSummarizer) Summarize(ctx context.Context, document string) (string, error) {
	ctx, span := summarizerTracer.Start(ctx, "conversation.summarize")
	defer span.End()

	document = StripDocPrefix(document)
	if strings.TrimSpace(document) == "" {
		return "", fmt.Errorf("conversation: document is empty")
	}

	system := []string{summarizerSystemPrompt}
	if hasConcerningTerms(document) {
		system = append(system, "The document contains findings that warrant a doctor's "+
			"attention. Under Doctor Recommendation, clearly advise the patient to "+
			"discuss these findings with a physician soon.")
	}

	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:       s.model,
		System:      system,
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: document}},
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("conversation: summarization failed: %w", err)
	}
	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", fmt.Errorf("conversation: summarization returned empty text")
	}

	return summary + "\n\n" + summaryDisclaimer, nil
}

// StripDocPrefix removes the doc: marker and surrounding whitespace from a
// document message. Messages without the marker pass through unchanged.
func StripDocPrefix(message string) string {
	trimmed := strings.TrimSpace(message)
	if len(trimmed) >= len(DocPrefix) && strings.EqualFold(trimmed[:len(DocPrefix)], DocPrefix) {
		return strings.TrimSpace(trimmed[len(DocPrefix):])
	}
	return trimmed
}

func hasConcerningTerms(document string) bool {
	lowered := strings.ToLower(document)
	for _, term := range concerningTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}
