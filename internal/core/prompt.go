package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"healthform-validator/pkg"
)

// prompt.go holds the fixed prompt text sent to the completion service and
// the builder that renders a PatientRecord into the user message. Keeping
// the prompt strings together makes them easy to tune without touching the
// analysis flow.

const (
	// SystemPrompt constrains the model to the four analysis categories and
	// a JSON array-of-objects shape per category.
	SystemPrompt = `You are a clinical decision support AI. Analyze patient data and provide:
1. CRITICAL ALERTS (immediate danger)
2. DRUG INTERACTIONS (medication safety)
3. MISSING INFORMATION (clinical gaps)
4. CLINICAL RECOMMENDATIONS (next steps)

Return a JSON response with these categories. Each should be an array of objects with 'severity' and 'message' fields.`

	// Placeholder text for absent fields. The prompt always carries every
	// section so the model sees a complete, fixed-shape request regardless
	// of how much the extractor managed to pull out.
	noneListed  = "None listed"
	noneKnown   = "None known"
	notProvided = "Not provided"
)

// BuildPrompt renders a PatientRecord into the clinical analysis request.
// The output is deterministic for a given record.
func BuildPrompt(rec pkg.PatientRecord) string {
	medications := noneListed
	if len(rec.Medications) > 0 {
		medications = strings.Join(rec.Medications, "\n")
	}

	allergies := rec.Allergies
	if allergies == "" {
		allergies = noneKnown
	}

	vitals := notProvided
	if len(rec.VitalSigns) > 0 {
		if b, err := json.MarshalIndent(rec.VitalSigns, "", "  "); err == nil {
			vitals = string(b)
		}
	}

	history := rec.MedicalHistory
	if history == "" {
		history = notProvided
	}

	return fmt.Sprintf(`PATIENT CLINICAL DATA ANALYSIS

DEMOGRAPHICS:
- Name: %s
- Age: %d years old
- Gender: %s
- Weight: %s

CHIEF COMPLAINT:
%s

CURRENT MEDICATIONS:
%s

ALLERGIES:
%s

VITAL SIGNS:
%s

MEDICAL HISTORY:
%s

CLINICAL ANALYSIS REQUEST:
Please analyze this patient data for:
1. Immediate safety concerns or critical alerts
2. Drug-drug interactions or contraindications
3. Missing critical information for safe care
4. Clinical recommendations and next steps

Focus on patient safety, medication interactions, and clinical decision support.
`, rec.Name, rec.Age, rec.Gender, rec.Weight, rec.ChiefComplaint, medications, allergies, vitals, history)
}
