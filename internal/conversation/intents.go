package conversation

import "strings"

// Intent is the closed classification of a patient utterance's purpose.
// Branch points in the engine switch over this type exhaustively; adding an
// intent means revisiting every switch, not falling through to a default.
type Intent string

const (
	IntentSymptomInquiry         Intent = "symptom_inquiry"
	IntentAppointmentRequest     Intent = "appointment_request"
	IntentDoctorInquiry          Intent = "doctor_inquiry"
	IntentCenterInformation      Intent = "center_information"
	IntentDocumentRequest        Intent = "document_request"
	IntentMedicineRecommendation Intent = "medicine_recommendation"
	IntentMedicineSafety         Intent = "medicine_safety"
	IntentGeneralHealth          Intent = "general_health"
	IntentAIRole                 Intent = "ai_role"
	IntentHealthApps             Intent = "health_apps"
	IntentSmallTalk              Intent = "small_talk"
	IntentPrivacy                Intent = "privacy"
	IntentBiasDiscrimination     Intent = "bias_discrimination"
	IntentHarmfulIntent          Intent = "harmful_intent"
	IntentAccessibility          Intent = "accessibility"
	IntentLanguageSupport        Intent = "language_support"
	IntentEmergency              Intent = "emergency"
	IntentGreeting               Intent = "greeting"
	IntentFarewell               Intent = "farewell"
	IntentAppointmentBooking     Intent = "appointment_booking"
	IntentNegativeResponse       Intent = "negative_response"
	IntentPositiveResponse       Intent = "positive_response"
	IntentInvalidQuery           Intent = "invalid_query"
	IntentSelfDiagnosis          Intent = "self_diagnosis"
	IntentDangerousRequest       Intent = "dangerous_request"
)

var allIntents = map[Intent]struct{}{
	IntentSymptomInquiry:         {},
	IntentAppointmentRequest:     {},
	IntentDoctorInquiry:          {},
	IntentCenterInformation:      {},
	IntentDocumentRequest:        {},
	IntentMedicineRecommendation: {},
	IntentMedicineSafety:         {},
	IntentGeneralHealth:          {},
	IntentAIRole:                 {},
	IntentHealthApps:             {},
	IntentSmallTalk:              {},
	IntentPrivacy:                {},
	IntentBiasDiscrimination:     {},
	IntentHarmfulIntent:          {},
	IntentAccessibility:          {},
	IntentLanguageSupport:        {},
	IntentEmergency:              {},
	IntentGreeting:               {},
	IntentFarewell:               {},
	IntentAppointmentBooking:     {},
	IntentNegativeResponse:       {},
	IntentPositiveResponse:       {},
	IntentInvalidQuery:           {},
	IntentSelfDiagnosis:          {},
	IntentDangerousRequest:       {},
}

// ParseIntent normalizes a raw intent string. The second return reports
// whether the value is a member of the closed set.
func ParseIntent(raw string) (Intent, bool) {
	intent := Intent(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := allIntents[intent]
	return intent, ok
}

// terminalIntents are handled with fixed canned responses and never reach
// retrieval, synthesis, or follow-up generation. Crisis and emergency wording
// must stay auditable, so these bypass the LLM entirely.
var terminalIntents = map[Intent]struct{}{
	IntentEmergency:        {},
	IntentHarmfulIntent:    {},
	IntentDangerousRequest: {},
	IntentInvalidQuery:     {},
	IntentGreeting:         {},
	IntentFarewell:         {},
	IntentSelfDiagnosis:    {},
}

// IsTerminal reports whether the intent short-circuits to a canned response.
func (i Intent) IsTerminal() bool {
	_, ok := terminalIntents[i]
	return ok
}

// followupExcluded is the hard gate the engine enforces regardless of what
// the follow-up generator would have produced.
var followupExcluded = map[Intent]struct{}{
	IntentGreeting:           {},
	IntentFarewell:           {},
	IntentNegativeResponse:   {},
	IntentPositiveResponse:   {},
	IntentInvalidQuery:       {},
	IntentEmergency:          {},
	IntentHarmfulIntent:      {},
	IntentDangerousRequest:   {},
	IntentAppointmentBooking: {},
	IntentSelfDiagnosis:      {},
	IntentAIRole:             {},
}

// SuppressesFollowup reports whether the engine must discard any follow-up
// question for this intent.
func (i Intent) SuppressesFollowup() bool {
	_, ok := followupExcluded[i]
	return ok
}

// Urgency grades how quickly a patient query needs attention.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

// ParseUrgency normalizes a raw urgency value, defaulting to medium.
func ParseUrgency(raw string) Urgency {
	u := Urgency(strings.ToLower(strings.TrimSpace(raw)))
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency:
		return u
	default:
		return UrgencyMedium
	}
}

// RiskLevel grades the clinical risk signaled by the utterance.
type RiskLevel string

const (
	RiskLow       RiskLevel = "low"
	RiskMedium    RiskLevel = "medium"
	RiskHigh      RiskLevel = "high"
	RiskEmergency RiskLevel = "emergency"
)

// ParseRiskLevel normalizes a raw risk value, defaulting to medium.
func ParseRiskLevel(raw string) RiskLevel {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskEmergency:
		return r
	default:
		return RiskMedium
	}
}

// NextAgent is the routing hint emitted by the classifier.
type NextAgent string

const (
	AgentRAG           NextAgent = "rag_agent"
	AgentSolution      NextAgent = "solution_agent"
	AgentDocSummarizer NextAgent = "doc_summarizer"
)

// ParseNextAgent normalizes a raw routing hint, defaulting to the solution agent.
func ParseNextAgent(raw string) NextAgent {
	a := NextAgent(strings.ToLower(strings.TrimSpace(raw)))
	switch a {
	case AgentRAG, AgentSolution, AgentDocSummarizer:
		return a
	default:
		return AgentSolution
	}
}
