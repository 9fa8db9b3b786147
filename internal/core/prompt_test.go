package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"healthform-validator/pkg"
)

func TestBuildPrompt_EmptyRecordUsesPlaceholders(t *testing.T) {
	prompt := BuildPrompt(pkg.NewPatientRecord())

	assert.Contains(t, prompt, "CURRENT MEDICATIONS:\nNone listed")
	assert.Contains(t, prompt, "ALLERGIES:\nNone known")
	assert.Contains(t, prompt, "VITAL SIGNS:\nNot provided")
	assert.Contains(t, prompt, "MEDICAL HISTORY:\nNot provided")
	assert.Contains(t, prompt, "- Age: 0 years old")
	assert.Contains(t, prompt, "- Gender: Unknown")
}

func TestBuildPrompt_AllSectionsAlwaysPresent(t *testing.T) {
	prompt := BuildPrompt(pkg.NewPatientRecord())

	for _, section := range []string{
		"DEMOGRAPHICS:",
		"CHIEF COMPLAINT:",
		"CURRENT MEDICATIONS:",
		"ALLERGIES:",
		"VITAL SIGNS:",
		"MEDICAL HISTORY:",
		"CLINICAL ANALYSIS REQUEST:",
	} {
		assert.Contains(t, prompt, section)
	}
}

func TestBuildPrompt_PopulatedRecord(t *testing.T) {
	rec := pkg.NewPatientRecord()
	rec.Name = "Jane Doe"
	rec.Age = 70
	rec.Gender = pkg.GenderFemale
	rec.Weight = "70 kg"
	rec.ChiefComplaint = "Chest pain"
	rec.Medications = []string{"Warfarin 5mg daily", "Aspirin 81mg daily"}
	rec.Allergies = "Penicillin"
	rec.VitalSigns = map[string]string{
		pkg.VitalBloodPressure: "180/110",
		pkg.VitalHeartRate:     "95",
		pkg.VitalTemperature:   "101.2F",
	}
	rec.MedicalHistory = "Atrial fibrillation"

	prompt := BuildPrompt(rec)

	assert.Contains(t, prompt, "- Name: Jane Doe")
	assert.Contains(t, prompt, "- Age: 70 years old")
	assert.Contains(t, prompt, "Warfarin 5mg daily\nAspirin 81mg daily")
	assert.Contains(t, prompt, "Penicillin")
	assert.Contains(t, prompt, `"blood_pressure": "180/110"`)
	assert.Contains(t, prompt, "Atrial fibrillation")
	assert.NotContains(t, prompt, "None listed")
	assert.NotContains(t, prompt, "Not provided")
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	rec := pkg.NewPatientRecord()
	rec.VitalSigns = map[string]string{
		pkg.VitalBloodPressure: "120/80",
		pkg.VitalHeartRate:     "60",
		pkg.VitalTemperature:   "98.6F",
	}

	assert.Equal(t, BuildPrompt(rec), BuildPrompt(rec))
}
