package symptoms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAnalyzer asks Google's Gemini API to triage symptoms.
type GeminiAnalyzer struct {
	client  *genai.Client
	modelID string
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey, modelID string) (*GeminiAnalyzer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("symptoms: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("symptoms: failed to create gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, modelID: modelID}, nil
}

// Analyze sends one generation request and parses the JSON verdict.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, symptoms string) (*Analysis, error) {
	text := normalize(symptoms)
	if text == "" {
		return nil, ErrEmptySymptoms
	}

	model := a.client.GenerativeModel(a.modelID)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(512)
	model.SystemInstruction = genai.NewUserContent(genai.Text(analysisPrompt))

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("symptoms: gemini generate failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("symptoms: empty gemini response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return nil, errors.New("symptoms: gemini response had no text parts")
	}
	return parseModelVerdict(sb.String(), "gemini")
}

// Close releases the underlying API client.
func (a *GeminiAnalyzer) Close() error {
	return a.client.Close()
}

var _ Analyzer = (*GeminiAnalyzer)(nil)
