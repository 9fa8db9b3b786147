package pkg

import "time"

// Gender is the normalized patient gender extracted from the form. Only the
// single characters M and F are recognized; anything else stays Unknown.
type Gender string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderUnknown Gender = "Unknown"
)

// Vital sign keys used in PatientRecord.VitalSigns.
const (
	VitalBloodPressure = "blood_pressure"
	VitalHeartRate     = "heart_rate"
	VitalTemperature   = "temperature"
)

// PatientRecord is the structured result of extracting a medical intake
// form. Every field defaults to its zero value; extraction only ever adds.
// VitalSigns is nil unless at least one vital-sign pattern matched, in which
// case all three keys are present (unmatched ones as empty strings).
type PatientRecord struct {
	Name           string            `json:"name"`
	Age            int               `json:"age"`
	Gender         Gender            `json:"gender"`
	Weight         string            `json:"weight"`
	ChiefComplaint string            `json:"chief_complaint"`
	Medications    []string          `json:"medications"`
	Allergies      string            `json:"allergies"`
	VitalSigns     map[string]string `json:"vital_signs,omitempty"`
	MedicalHistory string            `json:"medical_history"`
	// SocialHistory is not populated by any current extraction rule; it is
	// carried so persisted records keep a stable shape.
	SocialHistory string `json:"social_history"`
}

// NewPatientRecord returns a record with all documented defaults set.
func NewPatientRecord() PatientRecord {
	return PatientRecord{
		Gender:      GenderUnknown,
		Medications: []string{},
	}
}

// Severity grades a single clinical finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is one severity-tagged clinical observation, produced either by
// the completion service or by the local rule-based analyzer.
type Finding struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// AnalysisSource records which path produced an AnalysisResult.
type AnalysisSource string

const (
	// SourceLive marks results derived from a completion-service response,
	// including responses that had to be wrapped as raw text.
	SourceLive AnalysisSource = "live"
	// SourceFallback marks results from the local rule-based analyzer,
	// used whenever the service call itself fails.
	SourceFallback AnalysisSource = "fallback"
)

// AnalysisResult holds the four clinical-analysis categories. Every category
// is always a non-nil (possibly empty) slice; consumers must not assume any
// of them has entries.
type AnalysisResult struct {
	CriticalAlerts   []Finding      `json:"critical_alerts"`
	DrugInteractions []Finding      `json:"drug_interactions"`
	MissingInfo      []Finding      `json:"missing_info"`
	Recommendations  []Finding      `json:"recommendations"`
	Source           AnalysisSource `json:"source"`
}

// NewAnalysisResult returns a result with all categories initialized empty.
func NewAnalysisResult(source AnalysisSource) AnalysisResult {
	return AnalysisResult{
		CriticalAlerts:   []Finding{},
		DrugInteractions: []Finding{},
		MissingInfo:      []Finding{},
		Recommendations:  []Finding{},
		Source:           source,
	}
}

// AnalysisRun is the persisted envelope for one analysis: the submitted
// text, what was extracted from it, and what the analysis produced.
type AnalysisRun struct {
	ID               string         `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	PatientData      PatientRecord  `json:"patient_data"`
	AIAnalysis       AnalysisResult `json:"ai_analysis"`
	OriginalFormText string         `json:"original_form_text"`
}

// RunPreview is the listing row for saved analyses, newest first.
type RunPreview struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	PatientName string    `json:"patient_name"`
	AlertCount  int       `json:"alert_count"`
}
