package symptoms

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptySymptoms is returned for blank input.
	ErrEmptySymptoms = errors.New("symptoms: description is empty")

	// ErrNoAnalyzer is returned when no analyzer is configured at all.
	ErrNoAnalyzer = errors.New("symptoms: no analyzer configured")
)

// rule maps symptom keywords to a specialization and urgency.
type rule struct {
	keywords       []string
	specialization string
	urgency        Urgency
}

// ruleTable is scanned in order; emergency rules come first so they win
// over overlapping keywords.
var ruleTable = []rule{
	{[]string{"chest pain", "crushing pain", "pressure in chest"}, "cardiology", UrgencyEmergency},
	{[]string{"difficulty breathing", "shortness of breath", "can't breathe"}, "pulmonology", UrgencyEmergency},
	{[]string{"stroke", "slurred speech", "face drooping", "numb arm"}, "neurology", UrgencyEmergency},
	{[]string{"suicidal", "self harm"}, "psychiatry", UrgencyEmergency},
	{[]string{"palpitations", "irregular heartbeat"}, "cardiology", UrgencyHigh},
	{[]string{"severe headache", "migraine", "seizure", "dizziness"}, "neurology", UrgencyHigh},
	{[]string{"high fever", "stiff neck"}, "general medicine", UrgencyHigh},
	{[]string{"abdominal pain", "stomach ache", "nausea", "vomiting", "diarrhea"}, "gastroenterology", UrgencyModerate},
	{[]string{"rash", "itching", "acne", "eczema", "psoriasis"}, "dermatology", UrgencyModerate},
	{[]string{"joint pain", "back pain", "knee pain", "fracture", "sprain"}, "orthopedics", UrgencyModerate},
	{[]string{"anxiety", "depression", "insomnia", "panic"}, "psychiatry", UrgencyModerate},
	{[]string{"cough", "sore throat", "runny nose", "sneezing"}, "general medicine", UrgencyLow},
	{[]string{"fatigue", "tiredness"}, "general medicine", UrgencyLow},
}

var adviceByUrgency = map[Urgency]string{
	UrgencyEmergency: "Seek emergency care immediately. Do not wait for an online consultation.",
	UrgencyHigh:      "Book an appointment as soon as possible, ideally within 24 hours.",
	UrgencyModerate:  "Book an appointment with the suggested specialist in the coming days.",
	UrgencyLow:       "Monitor your symptoms. Book a consultation if they persist or worsen.",
}

// RuleBasedAnalyzer matches symptom keywords against a fixed table. It
// is the default analyzer and the fallback behind LLM-backed ones.
type RuleBasedAnalyzer struct{}

// NewRuleBasedAnalyzer creates the keyword analyzer.
func NewRuleBasedAnalyzer() *RuleBasedAnalyzer {
	return &RuleBasedAnalyzer{}
}

// Analyze scans the rule table and aggregates every match, reporting
// the highest urgency seen.
func (a *RuleBasedAnalyzer) Analyze(ctx context.Context, symptoms string) (*Analysis, error) {
	text := normalize(symptoms)
	if text == "" {
		return nil, ErrEmptySymptoms
	}

	result := &Analysis{Urgency: UrgencyLow, Source: "rules"}
	seen := map[string]struct{}{}
	for _, r := range ruleTable {
		for _, kw := range r.keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			if _, dup := seen[r.specialization]; !dup {
				seen[r.specialization] = struct{}{}
				result.Specializations = append(result.Specializations, r.specialization)
			}
			if urgencyRank(r.urgency) > urgencyRank(result.Urgency) {
				result.Urgency = r.urgency
			}
			break
		}
	}

	if len(result.Specializations) == 0 {
		result.Specializations = []string{"general medicine"}
	}
	result.Advice = adviceByUrgency[result.Urgency]
	return result, nil
}

func urgencyRank(u Urgency) int {
	switch u {
	case UrgencyEmergency:
		return 3
	case UrgencyHigh:
		return 2
	case UrgencyModerate:
		return 1
	}
	return 0
}

var _ Analyzer = (*RuleBasedAnalyzer)(nil)
