package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mediconnect/assistant-platform/pkg/logging"
	"go.opentelemetry.io/otel"
)

// DocPrefix marks a message whose body is a document to summarize rather
// than a question to answer.
const DocPrefix = "doc:"

var classifierTracer = otel.Tracer("mediconnect.internal.conversation.classifier")

const classifierSystemPrompt = `You are the triage classifier for a patient-facing medical assistant.
Classify the patient's latest message into exactly one intent from this list:
symptom_inquiry, appointment_request, doctor_inquiry, center_information,
document_request, medicine_recommendation, medicine_safety, general_health,
ai_role, health_apps, small_talk, privacy, bias_discrimination, harmful_intent,
accessibility, language_support, emergency, greeting, farewell,
appointment_booking, negative_response, positive_response, invalid_query,
self_diagnosis, dangerous_request.

Respond with ONLY a JSON object, no prose, in this shape:
{
  "intent": "<one intent>",
  "urgency": "low|medium|high|emergency",
  "symptoms": ["..."],
  "required_resources": {"rag_needed": true, "summarization_needed": false, "direct_llm": false},
  "risk_level": "low|medium|high|emergency",
  "next_agent": "rag_agent|solution_agent|doc_summarizer",
  "reasoning": "<one short sentence>"
}

Set rag_needed true only for questions answerable from the health center's
knowledge base (doctors, services, hours, documents, health education).
Set next_agent to rag_agent when rag_needed is true, otherwise solution_agent.`

// Classifier produces a routing record for every patient message. Model
// output is advisory; unparseable or out-of-vocabulary answers fall back to
// a conservative default, and the safety policy table overrides both.
type Classifier struct {
	llm    LLMClient
	model  string
	policy PolicyTable
	logger *logging.Logger
}

func NewClassifier(llm LLMClient, model string, policy PolicyTable, logger *logging.Logger) *Classifier {
	if llm == nil {
		panic("conversation: classifier LLM client cannot be nil")
	}
	if policy == nil {
		policy = DefaultPolicyTable()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{llm: llm, model: model, policy: policy, logger: logger}
}

// Classify routes one message. It never returns an error: every failure mode
// degrades to a usable classification.
func (c *Classifier) Classify(ctx context.Context, message string, history []Turn) Classification {
	ctx, span := classifierTracer.Start(ctx, "conversation.classify")
	defer span.End()

	if strings.HasPrefix(strings.TrimSpace(strings.ToLower(message)), DocPrefix) {
		return Classification{
			Intent:    IntentDocumentRequest,
			Urgency:   UrgencyMedium,
			Symptoms:  []string{},
			RiskLevel: RiskMedium,
			NextAgent: AgentDocSummarizer,
			RequiredResources: RequiredResources{
				SummarizationNeeded: true,
			},
			Reasoning: "document prefix detected",
		}
	}

	cls := c.classifyWithModel(ctx, message, history)

	if overridden, fired := c.policy.Apply(message, cls); fired {
		c.logger.Info("safety policy overrode classification",
			"intent", string(overridden.Intent),
			"reason", overridden.Reasoning,
		)
		return overridden
	}
	return cls
}

func (c *Classifier) classifyWithModel(ctx context.Context, message string, history []Turn) Classification {
	messages := make([]ChatMessage, 0, len(history)+1)
	for _, turn := range recentTurns(history, 6) {
		messages = append(messages, ChatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: message})

	resp, err := c.llm.Complete(ctx, LLMRequest{
		Model:       c.model,
		System:      []string{classifierSystemPrompt},
		Messages:    messages,
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("classifier completion failed, using default", "error", err.Error())
		return DefaultClassification()
	}

	cls, err := parseClassification(resp.Text)
	if err != nil {
		c.logger.Warn("classifier output unparseable, using default", "error", err.Error())
		return DefaultClassification()
	}
	return cls
}

type classificationPayload struct {
	Intent            string   `json:"intent"`
	Urgency           string   `json:"urgency"`
	Symptoms          []string `json:"symptoms"`
	RequiredResources struct {
		RAGNeeded           bool `json:"rag_needed"`
		SummarizationNeeded bool `json:"summarization_needed"`
		DirectLLM           bool `json:"direct_llm"`
	} `json:"required_resources"`
	RiskLevel string `json:"risk_level"`
	NextAgent string `json:"next_agent"`
	Reasoning string `json:"reasoning"`
}

func parseClassification(raw string) (Classification, error) {
	body, err := extractJSONObject(raw)
	if err != nil {
		return Classification{}, err
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return Classification{}, fmt.Errorf("conversation: classification parse: %w", err)
	}

	intent, ok := ParseIntent(payload.Intent)
	if !ok {
		return Classification{}, fmt.Errorf("conversation: unknown intent %q", payload.Intent)
	}

	symptoms := payload.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	return Classification{
		Intent:    intent,
		Urgency:   ParseUrgency(payload.Urgency),
		Symptoms:  symptoms,
		RiskLevel: ParseRiskLevel(payload.RiskLevel),
		NextAgent: ParseNextAgent(payload.NextAgent),
		RequiredResources: RequiredResources{
			RAGNeeded:           payload.RequiredResources.RAGNeeded,
			SummarizationNeeded: payload.RequiredResources.SummarizationNeeded,
			DirectLLM:           payload.RequiredResources.DirectLLM,
		},
		Reasoning: strings.TrimSpace(payload.Reasoning),
	}, nil
}

// extractJSONObject tolerates models that wrap the object in code fences or
// surrounding prose.
func extractJSONObject(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("conversation: empty classifier output")
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("conversation: no JSON object in classifier output")
	}
	return trimmed[start : end+1], nil
}

func recentTurns(history []Turn, limit int) []Turn {
	if len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
