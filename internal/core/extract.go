package core

import (
	"regexp"
	"strconv"
	"strings"

	"healthform-validator/pkg"
)

// medicationHeader is the exact table header the extractor scans for.
// Matching is deliberately literal (case- and whitespace-sensitive): the
// intake template is fixed and tolerating variants is an explicit non-goal.
const medicationHeader = "Medication Name | Dosage | Frequency | Prescribing Doctor"

// fieldRule binds one labeled form field to the regex that captures it and
// the setter that stores the capture. Rules are independent; a rule whose
// pattern does not match leaves its field at the record default.
type fieldRule struct {
	name    string
	pattern *regexp.Regexp
	set     func(rec *pkg.PatientRecord, capture string)
}

var fieldRules = []fieldRule{
	{
		name:    "name",
		pattern: regexp.MustCompile(`Patient Name:\s*([^\n\r]+)`),
		set: func(rec *pkg.PatientRecord, v string) {
			rec.Name = strings.TrimSpace(v)
		},
	},
	{
		name:    "age",
		pattern: regexp.MustCompile(`Age:\s*(\d+)`),
		set: func(rec *pkg.PatientRecord, v string) {
			if n, err := strconv.Atoi(v); err == nil {
				rec.Age = n
			}
		},
	},
	{
		name:    "gender",
		pattern: regexp.MustCompile(`Gender:\s*([MF])`),
		set: func(rec *pkg.PatientRecord, v string) {
			if v == "M" {
				rec.Gender = pkg.GenderMale
			} else {
				rec.Gender = pkg.GenderFemale
			}
		},
	},
	{
		name:    "weight",
		pattern: regexp.MustCompile(`Weight:\s*([^\n\r]+)`),
		set: func(rec *pkg.PatientRecord, v string) {
			rec.Weight = strings.TrimSpace(v)
		},
	},
	{
		name:    "chief_complaint",
		pattern: regexp.MustCompile(`Primary reason for today's visit:\s*\n([^-\n]+(?:\n[^-\n]+)*)`),
		set: func(rec *pkg.PatientRecord, v string) {
			rec.ChiefComplaint = strings.TrimSpace(v)
		},
	},
	{
		name:    "allergies",
		pattern: regexp.MustCompile(`Drug Allergies:\s*\n([^\n\r]+)`),
		set: func(rec *pkg.PatientRecord, v string) {
			rec.Allergies = strings.TrimSpace(v)
		},
	},
	{
		name:    "medical_history",
		pattern: regexp.MustCompile(`Chronic Conditions:\s*\n([^\n\r]+)`),
		set: func(rec *pkg.PatientRecord, v string) {
			rec.MedicalHistory = strings.TrimSpace(v)
		},
	},
}

var (
	bpPattern   = regexp.MustCompile(`Blood Pressure:\s*(\d+\s*/\s*\d+)`)
	hrPattern   = regexp.MustCompile(`Heart Rate:\s*(\d+)`)
	tempPattern = regexp.MustCompile(`Temperature:\s*([^\s\n]+)`)
)

// Extract maps raw intake-form text to a PatientRecord. It accepts any
// input, including empty or completely unstructured text, and never fails:
// an absent pattern simply leaves the corresponding field at its default.
// Extraction is deterministic; the same text always yields the same record.
func Extract(formText string) pkg.PatientRecord {
	rec := pkg.NewPatientRecord()

	for _, rule := range fieldRules {
		if m := rule.pattern.FindStringSubmatch(formText); m != nil {
			rule.set(&rec, m[1])
		}
	}

	rec.Medications = extractMedications(formText)
	rec.VitalSigns = extractVitals(formText)

	return rec
}

// extractMedications scans for the literal medication table header and
// parses the pipe-delimited rows that follow it. A row is accepted only if
// it splits into exactly four fields with a non-empty drug name; malformed
// rows are skipped without stopping the scan. The table ends at the first
// blank line or first line lacking a pipe. The prescribing-doctor column is
// parsed but not carried into the display string.
func extractMedications(formText string) []string {
	meds := []string{}

	normalized := strings.ReplaceAll(strings.TrimSpace(formText), "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	headerIdx := -1
	for i, line := range lines {
		if line == medicationHeader {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return meds
	}

	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" || !strings.Contains(line, "|") {
			break
		}
		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) == 4 && parts[0] != "" {
			meds = append(meds, strings.TrimSpace(parts[0]+" "+parts[1]+" "+parts[2]))
		}
	}
	return meds
}

// extractVitals matches the three vital-sign patterns independently. The
// map is returned only when at least one matched; unmatched sub-fields are
// present as empty strings so the map always carries all three keys.
func extractVitals(formText string) map[string]string {
	bp := bpPattern.FindStringSubmatch(formText)
	hr := hrPattern.FindStringSubmatch(formText)
	temp := tempPattern.FindStringSubmatch(formText)

	if bp == nil && hr == nil && temp == nil {
		return nil
	}

	vitals := map[string]string{
		pkg.VitalBloodPressure: "",
		pkg.VitalHeartRate:     "",
		pkg.VitalTemperature:   "",
	}
	if bp != nil {
		vitals[pkg.VitalBloodPressure] = bp[1]
	}
	if hr != nil {
		vitals[pkg.VitalHeartRate] = hr[1]
	}
	if temp != nil {
		vitals[pkg.VitalTemperature] = temp[1]
	}
	return vitals
}
