package conversation

// StaticKnowledge is the hand-maintained safety net behind the vector store.
// When retrieval misses for a facility question the assistant can still
// answer with these rather than claiming ignorance about its own center.
// These snippets go stale if center details change; the source IDs make it
// obvious in transcripts when they were used.
type StaticKnowledge struct {
	CenterInfo []Source
	Doctors    []Source
}

// DefaultStaticKnowledge describes the health center the assistant fronts.
func DefaultStaticKnowledge() *StaticKnowledge {
	return &StaticKnowledge{
		CenterInfo: []Source{
			{
				SourceID: "static:center-info",
				Snippet: "MediConnect Health Center is open Monday through Friday 8am to 6pm " +
					"and Saturday 9am to 1pm. Walk-ins are accepted for urgent care; " +
					"appointments can be booked by phone or through the patient portal.",
			},
			{
				SourceID: "static:center-services",
				Snippet: "The center offers family medicine, internal medicine, pediatrics, " +
					"basic laboratory tests, vaccinations, and health screenings. " +
					"Specialist referrals are arranged through your primary care doctor.",
			},
		},
		Doctors: []Source{
			{
				SourceID: "static:doctor-roster",
				Snippet: "Available doctors include family medicine, internal medicine, and " +
					"pediatrics physicians. A current roster with consultation hours is " +
					"available at the front desk and on the patient portal.",
			},
		},
	}
}

// SourcesFor returns the static snippets applicable to an intent, or nil
// when no static answer is appropriate.
func (k *StaticKnowledge) SourcesFor(intent Intent) []Source {
	if k == nil {
		return nil
	}
	switch intent {
	case IntentCenterInformation:
		return k.CenterInfo
	case IntentDoctorInquiry:
		return k.Doctors
	case IntentAppointmentRequest:
		return k.CenterInfo
	default:
		return nil
	}
}
