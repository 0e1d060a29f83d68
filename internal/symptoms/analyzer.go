package symptoms

import (
	"context"
	"strings"
)

// Urgency is the triage level an analysis assigns.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyModerate  Urgency = "moderate"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

// Analysis is the outcome of one symptom assessment. It is advisory
// only; booking never depends on it.
type Analysis struct {
	Urgency         Urgency  `json:"urgency"`
	Specializations []string `json:"specializations"`
	Advice          string   `json:"advice"`
	Source          string   `json:"source"`
}

// Analyzer assesses free-text symptoms and suggests a specialization.
type Analyzer interface {
	Analyze(ctx context.Context, symptoms string) (*Analysis, error)
}

// WithFallback chains analyzers: the first to succeed wins. Used to
// front an LLM-backed analyzer with the rule-based one as a safety net.
type WithFallback struct {
	primary  Analyzer
	fallback Analyzer
}

// NewWithFallback composes primary and fallback. Either may be nil; a
// nil primary degrades to fallback alone.
func NewWithFallback(primary, fallback Analyzer) *WithFallback {
	return &WithFallback{primary: primary, fallback: fallback}
}

// Analyze tries the primary analyzer, then the fallback.
func (a *WithFallback) Analyze(ctx context.Context, symptoms string) (*Analysis, error) {
	if a.primary != nil {
		if result, err := a.primary.Analyze(ctx, symptoms); err == nil {
			return result, nil
		}
	}
	if a.fallback == nil {
		return nil, ErrNoAnalyzer
	}
	return a.fallback.Analyze(ctx, symptoms)
}

var _ Analyzer = (*WithFallback)(nil)

func normalize(symptoms string) string {
	return strings.ToLower(strings.TrimSpace(symptoms))
}
