package conversation

import "strings"

// PolicyRule deterministically overrides a classification when any of its
// phrases appears in the patient message. Safety routing must not depend on
// model output, so these rules run after classification and always win.
type PolicyRule struct {
	Phrases   []string
	Intent    Intent
	Urgency   Urgency
	RiskLevel RiskLevel
	NextAgent NextAgent
	Reason    string
}

// PolicyTable is an ordered rule set. The first matching rule applies.
type PolicyTable []PolicyRule

// DefaultPolicyTable covers the emergency, self-harm, and dangerous-request
// phrases the assistant must catch even when the classifier model misses
// them. Order matters: crisis phrases outrank everything else.
func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		{
			Phrases: []string{
				"suicide", "kill myself", "end my life", "want to die",
				"don't want to live", "do not want to live", "not worth living",
				"no reason to live", "hurt myself", "self harm", "self-harm",
			},
			Intent:    IntentEmergency,
			Urgency:   UrgencyEmergency,
			RiskLevel: RiskEmergency,
			NextAgent: AgentSolution,
			Reason:    "self-harm phrase",
		},
		{
			Phrases: []string{
				"chest pain", "can't breathe", "cannot breathe", "difficulty breathing",
				"heart attack", "stroke", "unconscious", "severe bleeding",
				"seizure", "overdose", "not breathing",
			},
			Intent:    IntentEmergency,
			Urgency:   UrgencyEmergency,
			RiskLevel: RiskEmergency,
			NextAgent: AgentSolution,
			Reason:    "emergency symptom phrase",
		},
		{
			Phrases: []string{
				"hurt someone", "kill someone", "harm someone", "hurt them",
				"make them sick", "poison someone",
			},
			Intent:    IntentHarmfulIntent,
			Urgency:   UrgencyHigh,
			RiskLevel: RiskHigh,
			NextAgent: AgentSolution,
			Reason:    "harm-to-others phrase",
		},
		{
			Phrases: []string{
				"lethal dose", "how to make poison", "overdose on purpose",
				"mix medications to", "fake prescription", "forge a prescription",
			},
			Intent:    IntentDangerousRequest,
			Urgency:   UrgencyHigh,
			RiskLevel: RiskHigh,
			NextAgent: AgentSolution,
			Reason:    "dangerous request phrase",
		},
	}
}

// Apply returns the classification adjusted by the first matching rule. The
// boolean reports whether a rule fired.
func (t PolicyTable) Apply(message string, cls Classification) (Classification, bool) {
	lowered := strings.ToLower(message)
	lowered = strings.ReplaceAll(lowered, "’", "'")
	for _, rule := range t {
		for _, phrase := range rule.Phrases {
			if !strings.Contains(lowered, phrase) {
				continue
			}
			cls.Intent = rule.Intent
			cls.Urgency = rule.Urgency
			cls.RiskLevel = rule.RiskLevel
			cls.NextAgent = rule.NextAgent
			cls.RequiredResources = RequiredResources{DirectLLM: false}
			cls.Reasoning = "safety policy: " + rule.Reason
			return cls, true
		}
	}
	return cls, false
}
