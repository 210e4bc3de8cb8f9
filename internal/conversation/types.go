package conversation

import (
	"context"
	"time"
)

// Role identifies who produced a turn in a session transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a session transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RequiredResources flags which downstream stages the classifier believes
// the query needs.
type RequiredResources struct {
	RAGNeeded           bool `json:"rag_needed"`
	SummarizationNeeded bool `json:"summarization_needed"`
	DirectLLM           bool `json:"direct_llm"`
}

// Classification is the structured routing record the classifier emits for
// every message. Every field is always populated; parse failures fall back
// to DefaultClassification rather than leaving zeros.
type Classification struct {
	Intent            Intent            `json:"intent"`
	Urgency           Urgency           `json:"urgency"`
	Symptoms          []string          `json:"symptoms"`
	RequiredResources RequiredResources `json:"required_resources"`
	RiskLevel         RiskLevel         `json:"risk_level"`
	NextAgent         NextAgent         `json:"next_agent"`
	Reasoning         string            `json:"reasoning"`
}

// DefaultClassification is the conservative routing record used when the
// classifier's output cannot be parsed. Treating the message as a medium
// urgency symptom inquiry keeps the pipeline moving without inventing risk.
func DefaultClassification() Classification {
	return Classification{
		Intent:    IntentSymptomInquiry,
		Urgency:   UrgencyMedium,
		Symptoms:  []string{},
		RiskLevel: RiskMedium,
		NextAgent: AgentSolution,
		RequiredResources: RequiredResources{
			RAGNeeded:           false,
			SummarizationNeeded: false,
			DirectLLM:           true,
		},
		Reasoning: "classifier output unparseable, defaulted",
	}
}

// Source is one attributed snippet returned by retrieval.
type Source struct {
	SourceID string `json:"source_id"`
	Snippet  string `json:"snippet"`
}

// RetrievalResult carries retrieved evidence into synthesis. The emptiness
// of Sources is the sole authority on whether the knowledge base had
// anything relevant; the Answer text is never inspected for that.
type RetrievalResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Empty reports whether retrieval found no usable evidence.
func (r RetrievalResult) Empty() bool { return len(r.Sources) == 0 }

// NotFoundResult is the sentinel retrieval outcome used both when the store
// genuinely has no match and when retrieval itself fails.
func NotFoundResult() RetrievalResult {
	return RetrievalResult{Answer: "", Sources: nil}
}

// TurnRequest is one inbound patient message addressed to a session.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// TurnResponse is the fully assembled reply for one turn.
type TurnResponse struct {
	SessionID      string         `json:"session_id"`
	Reply          string         `json:"reply"`
	FollowUp       string         `json:"follow_up,omitempty"`
	Classification Classification `json:"classification"`
	Sources        []Source       `json:"sources,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Service is the conversation engine's public surface.
type Service interface {
	ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
	History(ctx context.Context, sessionID string) ([]Turn, error)
	ClearSession(ctx context.Context, sessionID string) error
}
