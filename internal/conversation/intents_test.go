package conversation

import "testing"

func TestParseIntent(t *testing.T) {
	tests := []struct {
		raw    string
		want   Intent
		wantOK bool
	}{
		{"symptom_inquiry", IntentSymptomInquiry, true},
		{"  EMERGENCY  ", IntentEmergency, true},
		{"Dangerous_Request", IntentDangerousRequest, true},
		{"made_up_intent", Intent("made_up_intent"), false},
		{"", Intent(""), false},
	}
	for _, tt := range tests {
		got, ok := ParseIntent(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseIntent(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIntentIsTerminal(t *testing.T) {
	terminal := []Intent{
		IntentEmergency, IntentHarmfulIntent, IntentDangerousRequest,
		IntentInvalidQuery, IntentGreeting, IntentFarewell, IntentSelfDiagnosis,
	}
	for _, intent := range terminal {
		if !intent.IsTerminal() {
			t.Errorf("expected %s to be terminal", intent)
		}
	}
	for _, intent := range []Intent{IntentSymptomInquiry, IntentDoctorInquiry, IntentAppointmentBooking} {
		if intent.IsTerminal() {
			t.Errorf("expected %s not to be terminal", intent)
		}
	}
}

func TestIntentSuppressesFollowup(t *testing.T) {
	// Every terminal intent suppresses, plus the reaction and booking
	// intents that end a thread without inviting another question.
	for intent := range terminalIntents {
		if !intent.SuppressesFollowup() {
			t.Errorf("terminal intent %s should suppress follow-ups", intent)
		}
	}
	suppressed := []Intent{
		IntentNegativeResponse, IntentPositiveResponse,
		IntentAppointmentBooking, IntentAIRole,
	}
	for _, intent := range suppressed {
		if !intent.SuppressesFollowup() {
			t.Errorf("expected %s to suppress follow-ups", intent)
		}
	}
	for _, intent := range []Intent{IntentSymptomInquiry, IntentGeneralHealth, IntentCenterInformation} {
		if intent.SuppressesFollowup() {
			t.Errorf("expected %s to allow follow-ups", intent)
		}
	}
}

func TestParseUrgencyDefaultsToMedium(t *testing.T) {
	if got := ParseUrgency("HIGH"); got != UrgencyHigh {
		t.Fatalf("ParseUrgency(HIGH) = %s", got)
	}
	if got := ParseUrgency("panic"); got != UrgencyMedium {
		t.Fatalf("expected unknown urgency to default to medium, got %s", got)
	}
}

func TestParseRiskLevelDefaultsToMedium(t *testing.T) {
	if got := ParseRiskLevel("emergency"); got != RiskEmergency {
		t.Fatalf("ParseRiskLevel(emergency) = %s", got)
	}
	if got := ParseRiskLevel(""); got != RiskMedium {
		t.Fatalf("expected empty risk to default to medium, got %s", got)
	}
}

func TestParseNextAgentDefaultsToSolution(t *testing.T) {
	if got := ParseNextAgent("rag_agent"); got != AgentRAG {
		t.Fatalf("ParseNextAgent(rag_agent) = %s", got)
	}
	if got := ParseNextAgent("router_9000"); got != AgentSolution {
		t.Fatalf("expected unknown agent to default to solution, got %s", got)
	}
}
