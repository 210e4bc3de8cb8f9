package conversation

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/mediconnect/assistant-platform/pkg/logging"
	"go.opentelemetry.io/otel"
)

var followupTracer = otel.Tracer("mediconnect.internal.conversation.followup")

const followupSystemPrompt = `You help a health assistant keep a patient conversation going.
Given the patient's message and the assistant's reply, write exactly ONE
follow-up question of 10 to 15 words that moves the conversation forward.
Output only the question itself: no preamble, no numbering, no second question.`

// FollowupGenerator produces the single engagement question appended to a
// reply. The engine skips calling it entirely for suppressed intents; this
// type only worries about producing one clean, non-repeated question.
type FollowupGenerator struct {
	llm    LLMClient
	model  string
	logger *logging.Logger
}

func NewFollowupGenerator(llm LLMClient, model string, logger *logging.Logger) *FollowupGenerator {
	if llm == nil {
		panic("conversation: followup LLM client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FollowupGenerator{llm: llm, model: model, logger: logger}
}

// Generate returns one follow-up question, or an empty string when the model
// produced nothing usable or only questions already asked this session.
func (g *FollowupGenerator) Generate(ctx context.Context, message, reply string, asked []string) (string, error) {
	ctx, span := followupTracer.Start(ctx, "conversation.followup")
	defer span.End()

	prompt := fmt.Sprintf("Patient said: %s\n\nAssistant replied: %s", message, reply)

	resp, err := g.llm.Complete(ctx, LLMRequest{
		Model:       g.model,
		System:      []string{followupSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   64,
		Temperature: 0.7,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("conversation: followup generation failed: %w", err)
	}

	question := FirstQuestion(resp.Text)
	if question == "" {
		return "", nil
	}

	normalized := normalizeQuestion(question)
	for _, prev := range asked {
		if normalizeQuestion(prev) == normalized {
			g.logger.Info("followup repeated an earlier question, dropping it")
			return "", nil
		}
	}
	return question, nil
}

// FirstQuestion extracts the first complete question from model output.
// Models sometimes emit several questions despite instructions; only the
// first survives.
func FirstQuestion(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	idx := strings.Index(trimmed, "?")
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(trimmed[:idx+1])
}

// normalizeQuestion reduces a question to its letters and digits so trivial
// punctuation or casing changes do not defeat the repeat check.
func normalizeQuestion(q string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(q) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else if unicode.IsSpace(r) {
			builder.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}
