package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/mediconnect/assistant-platform/pkg/logging"
	"go.opentelemetry.io/otel"
)

var synthesizerTracer = otel.Tracer("mediconnect.internal.conversation.synthesizer")

const synthesizerBasePrompt = `You are a warm, careful assistant for MediConnect Health Center,
talking with a patient. Be empathetic and plainspoken. Never diagnose, never
name specific medications or dosages, and never invent facts about the center,
its doctors, or the patient's condition. When the patient needs care, guide
them toward booking a visit with a doctor. Keep answers to a few short
paragraphs at most.`

// notFoundReply is the deterministic answer for knowledge questions the
// corpus cannot support. Emitting it without a model call makes fabricated
// answers structurally impossible on this path.
const notFoundReply = "I'm sorry, I couldn't find information about that in our " +
	"knowledge base. I'd rather tell you that than guess. Our front desk can help " +
	"with questions I can't answer, or I can help you book an appointment with a " +
	"doctor who can."

// ResponseSynthesizer produces the patient-facing reply from the message,
// its classification, and whatever evidence retrieval produced.
type ResponseSynthesizer struct {
	llm    LLMClient
	model  string
	logger *logging.Logger
}

func NewResponseSynthesizer(llm LLMClient, model string, logger *logging.Logger) *ResponseSynthesizer {
	if llm == nil {
		panic("conversation: synthesizer LLM client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ResponseSynthesizer{llm: llm, model: model, logger: logger}
}

// Synthesize builds the reply for one turn. When retrieval was required but
// produced no sources, the not-found template is returned without consulting
// the model.
func (s *ResponseSynthesizer) Synthesize(ctx context.Context, message string, cls Classification, retrieval RetrievalResult, history []Turn) (string, error) {
	ctx, span := synthesizerTracer.Start(ctx, "conversation.synthesize")
	defer span.End()

	if cls.RequiredResources.RAGNeeded && retrieval.Empty() {
		return notFoundReply, nil
	}

	system := []string{synthesizerBasePrompt}
	if guidance := categoryGuidance(cls.Intent); guidance != "" {
		system = append(system, guidance)
	}
	system = append(system, stageGuidance(history))

	if !retrieval.Empty() {
		system = append(system, "Use ONLY the following health center context to answer "+
			"factual questions about the center, its doctors, or its services. If the "+
			"context does not cover something, say so instead of guessing.\n\nContext:\n"+
			retrieval.Answer)
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	for _, turn := range recentTurns(history, 10) {
		messages = append(messages, ChatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: message})

	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:       s.model,
		System:      system,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.4,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("conversation: synthesis failed: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("conversation: synthesis returned empty text")
	}
	return resp.Text, nil
}

// categoryGuidance returns the per-intent instruction block. Intents without
// special handling fall through to the base persona.
func categoryGuidance(intent Intent) string {
	switch intent {
	case IntentSymptomInquiry:
		return "The patient is describing symptoms. Acknowledge how they feel, ask " +
			"nothing the follow-up stage will ask, offer general comfort measures, and " +
			"recommend seeing a doctor if symptoms are severe, worsening, or persistent."
	case IntentMedicineRecommendation:
		return "The patient wants a medication recommendation. Do not name any drug, " +
			"brand, or dosage. Explain that a doctor or pharmacist must choose medication " +
			"based on their history, and offer to help book an appointment."
	case IntentMedicineSafety:
		return "The patient is asking about medication safety. Give general safety " +
			"principles only. For anything specific to a drug or combination, direct them " +
			"to their pharmacist or prescribing doctor."
	case IntentAppointmentRequest, IntentAppointmentBooking:
		return "Help the patient move toward a booked appointment. Mention how booking " +
			"works at the center and what information they will need."
	case IntentDoctorInquiry, IntentCenterInformation:
		return "Answer from the provided center context only. If the detail is not in " +
			"the context, say the front desk can confirm it."
	case IntentGeneralHealth:
		return "Give balanced, widely accepted health education. Avoid anything that " +
			"reads as a personal prescription."
	case IntentAIRole:
		return "Explain plainly that you are an AI assistant for the health center, " +
			"what you can and cannot help with, and that you do not replace a doctor."
	case IntentHealthApps:
		return "Discuss health apps in general terms, including their limits. Do not " +
			"endorse a specific commercial product."
	case IntentPrivacy:
		return "Reassure the patient about how their information is handled: " +
			"conversations are stored securely and personal details are not shared. " +
			"Invite them to ask the center for its full privacy policy."
	case IntentBiasDiscrimination:
		return "Take the concern seriously and without defensiveness. Affirm that every " +
			"patient deserves equal care and explain how to raise a formal complaint."
	case IntentAccessibility:
		return "Describe the accessibility support the center can arrange and invite " +
			"the patient to share what accommodation would help them."
	case IntentLanguageSupport:
		return "Acknowledge the language need and explain that interpreter support can " +
			"be arranged for visits. Keep your own wording simple."
	case IntentSmallTalk:
		return "Respond briefly and warmly, then gently steer back to how you can help " +
			"with their health."
	case IntentNegativeResponse, IntentPositiveResponse:
		return "The patient is reacting to your previous message. Respond naturally to " +
			"their reaction and offer the next helpful step."
	default:
		return ""
	}
}

// stageGuidance varies warmth with conversation depth so the assistant does
// not re-introduce itself on every turn.
func stageGuidance(history []Turn) string {
	userTurns := 0
	for _, turn := range history {
		if turn.Role == RoleUser {
			userTurns++
		}
	}
	switch {
	case userTurns <= 1:
		return "This is the start of the conversation. Open warmly and make the " +
			"patient feel heard before getting to substance."
	case userTurns <= 4:
		return "The conversation is underway. Skip introductions, stay warm, and " +
			"build on what has already been said."
	default:
		return "This is a long conversation. Be concise and direct while staying " +
			"kind; do not repeat earlier advice unless asked."
	}
}
