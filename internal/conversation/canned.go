package conversation

// Canned responses for terminal intents. These are fixed strings so that
// crisis and refusal wording is auditable and immune to model drift. The
// engine emits them without calling any downstream stage.
var cannedResponses = map[Intent]string{
	IntentEmergency: "This sounds like it could be a medical emergency. Please call 911 " +
		"or go to the nearest emergency room right away. If you are having thoughts of " +
		"harming yourself, you can call or text 988, the Suicide & Crisis Lifeline, " +
		"at any time. I am not able to provide emergency care, and please do not wait " +
		"for an online response.",
	IntentHarmfulIntent: "I can't help with anything intended to harm you or another " +
		"person. If you or someone else is in danger, please contact 911. If you are " +
		"struggling, the 988 Suicide & Crisis Lifeline is available by call or text " +
		"around the clock.",
	IntentDangerousRequest: "I can't provide that information because it could cause " +
		"serious harm. If you have questions about safe medication use, please speak " +
		"with your doctor or a licensed pharmacist, who can advise you safely.",
	IntentInvalidQuery: "I'm sorry, I couldn't understand that message. Could you " +
		"rephrase your question? I can help with symptoms, appointments, our doctors, " +
		"center information, and general health questions.",
	IntentGreeting: "Hello! I'm the MediConnect health assistant. I can help you with " +
		"symptom questions, booking appointments, information about our doctors and " +
		"center, and general health guidance. What can I do for you today?",
	IntentFarewell: "Take care! If anything else comes up, I'm here whenever you need " +
		"me. Wishing you good health.",
	IntentSelfDiagnosis: "I understand it's tempting to draw your own conclusions, but " +
		"I can't confirm a self-diagnosis. Symptoms can overlap across many conditions, " +
		"and only an examination by a doctor can tell them apart. I'd encourage you to " +
		"book a visit so a physician can take a proper look.",
}

// CannedResponse returns the fixed reply for a terminal intent.
func CannedResponse(intent Intent) (string, bool) {
	text, ok := cannedResponses[intent]
	return text, ok
}
