package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"healthform-validator/internal/llm"
	"healthform-validator/pkg"
)

// Analyzer turns an extracted PatientRecord into an AnalysisResult. It
// prefers the live completion service but never fails: a service error
// degrades to the rule-based fallback, and an unparseable response degrades
// to a raw-text finding. Callers always get a complete result and can tell
// the paths apart by the result's Source.
type Analyzer struct {
	llm llm.Client
	log zerolog.Logger
}

// NewAnalyzer constructs an Analyzer backed by the given completion client.
func NewAnalyzer(client llm.Client, log zerolog.Logger) *Analyzer {
	return &Analyzer{llm: client, log: log}
}

// Analyze builds the clinical prompt for rec, submits it, and parses the
// response. It does not return an error; every failure path resolves to a
// usable (if degraded) result.
func (a *Analyzer) Analyze(ctx context.Context, rec pkg.PatientRecord) pkg.AnalysisResult {
	prompt := BuildPrompt(rec)

	raw, err := a.llm.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		a.log.Warn().Err(err).Msg("completion service failed, using rule-based fallback")
		return FallbackAnalysis(rec)
	}
	return parseResponse(raw)
}

// responseKeys maps each result category to the key variants the service is
// known to emit: the upper-case section headings from the system prompt and
// their snake_case equivalents.
var responseKeys = []struct {
	upper string
	snake string
	set   func(res *pkg.AnalysisResult, findings []pkg.Finding)
}{
	{"CRITICAL ALERTS", "critical_alerts", func(r *pkg.AnalysisResult, f []pkg.Finding) { r.CriticalAlerts = f }},
	{"DRUG INTERACTIONS", "drug_interactions", func(r *pkg.AnalysisResult, f []pkg.Finding) { r.DrugInteractions = f }},
	{"MISSING INFORMATION", "missing_info", func(r *pkg.AnalysisResult, f []pkg.Finding) { r.MissingInfo = f }},
	{"CLINICAL RECOMMENDATIONS", "recommendations", func(r *pkg.AnalysisResult, f []pkg.Finding) { r.Recommendations = f }},
}

// parseResponse attempts to pull a JSON object out of the raw response text
// and consolidate it into the internal result shape. The locator is
// heuristic (first opening brace to last closing brace); when no parseable
// object is found the entire response is wrapped as a single medium-severity
// critical alert rather than discarded.
func parseResponse(raw string) pkg.AnalysisResult {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return wrapTextResponse(raw)
	}

	var categories map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &categories); err != nil {
		return wrapTextResponse(raw)
	}

	res := pkg.NewAnalysisResult(pkg.SourceLive)
	for _, key := range responseKeys {
		payload, ok := categories[key.upper]
		if !ok {
			payload, ok = categories[key.snake]
		}
		if !ok {
			continue
		}
		var findings []pkg.Finding
		if err := json.Unmarshal(payload, &findings); err != nil {
			continue
		}
		for i := range findings {
			findings[i].Severity = normalizeSeverity(findings[i].Severity)
		}
		key.set(&res, findings)
	}
	return res
}

// wrapTextResponse is the degraded-but-non-failing outcome for a response
// with no usable JSON: the full text becomes one medium critical alert.
func wrapTextResponse(raw string) pkg.AnalysisResult {
	res := pkg.NewAnalysisResult(pkg.SourceLive)
	res.CriticalAlerts = append(res.CriticalAlerts, pkg.Finding{
		Severity: pkg.SeverityMedium,
		Message:  raw,
	})
	return res
}

func normalizeSeverity(s pkg.Severity) pkg.Severity {
	switch s {
	case pkg.SeverityLow, pkg.SeverityMedium, pkg.SeverityHigh:
		return s
	default:
		return pkg.SeverityMedium
	}
}

// FallbackAnalysis is the deterministic rule-based substitute for the
// completion service, used whenever the live call fails. The rules are
// crude on purpose (substring matches, a single age threshold) and always
// close with one medication-reconciliation recommendation so the result is
// never empty.
func FallbackAnalysis(rec pkg.PatientRecord) pkg.AnalysisResult {
	res := pkg.NewAnalysisResult(pkg.SourceFallback)

	if rec.Age > 65 {
		res.CriticalAlerts = append(res.CriticalAlerts, pkg.Finding{
			Severity: pkg.SeverityMedium,
			Message:  fmt.Sprintf("Elderly patient (age %d) requires careful monitoring", rec.Age),
		})
	}

	if len(rec.Medications) > 0 {
		res.DrugInteractions = append(res.DrugInteractions, pkg.Finding{
			Severity: pkg.SeverityMedium,
			Message:  fmt.Sprintf("Patient on %d medications - check for interactions", len(rec.Medications)),
		})

		medList := strings.ToLower(strings.Join(rec.Medications, " "))
		if strings.Contains(medList, "warfarin") && strings.Contains(medList, "aspirin") {
			res.CriticalAlerts = append(res.CriticalAlerts, pkg.Finding{
				Severity: pkg.SeverityHigh,
				Message:  "DANGEROUS: Warfarin + Aspirin combination increases bleeding risk",
			})
		}
	}

	if bp := rec.VitalSigns[pkg.VitalBloodPressure]; bp != "" {
		// Substring match, not a numeric threshold: 180 systolic or 110
		// diastolic anywhere in the reading trips the alert.
		if strings.Contains(bp, "180") || strings.Contains(bp, "110") {
			res.CriticalAlerts = append(res.CriticalAlerts, pkg.Finding{
				Severity: pkg.SeverityHigh,
				Message:  fmt.Sprintf("HYPERTENSIVE CRISIS: Blood pressure %s requires immediate attention", bp),
			})
		}
	}

	res.Recommendations = append(res.Recommendations, pkg.Finding{
		Severity: pkg.SeverityLow,
		Message:  "Complete medication reconciliation recommended",
	})

	return res
}
