package symptoms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const analysisPrompt = `You are a medical triage assistant. Given a patient's symptom description,
respond with a single JSON object and nothing else:
{"urgency":"low|moderate|high|emergency","specializations":["..."],"advice":"..."}`

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockAnalyzer asks a Bedrock-hosted model to triage symptoms.
type BedrockAnalyzer struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockAnalyzer creates a Bedrock-backed analyzer.
func NewBedrockAnalyzer(api bedrockConverseAPI, modelID string) (*BedrockAnalyzer, error) {
	if api == nil {
		return nil, errors.New("symptoms: bedrock client is required")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("symptoms: bedrock model id is required")
	}
	return &BedrockAnalyzer{api: api, modelID: modelID}, nil
}

// Analyze sends one converse turn and parses the JSON verdict.
func (a *BedrockAnalyzer) Analyze(ctx context.Context, symptoms string) (*Analysis, error) {
	text := normalize(symptoms)
	if text == "" {
		return nil, ErrEmptySymptoms
	}

	out, err := a.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(a.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: analysisPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: text},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(512),
			Temperature: aws.Float32(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("symptoms: bedrock converse failed: %w", err)
	}

	raw, err := extractConverseText(out)
	if err != nil {
		return nil, err
	}
	return parseModelVerdict(raw, "bedrock")
}

func extractConverseText(out *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("symptoms: unexpected bedrock output shape")
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("symptoms: empty bedrock response")
	}
	return sb.String(), nil
}

// parseModelVerdict decodes the model's JSON, tolerating surrounding
// prose or code fences.
func parseModelVerdict(raw, source string) (*Analysis, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("symptoms: no JSON object in model response")
	}

	var parsed struct {
		Urgency         string   `json:"urgency"`
		Specializations []string `json:"specializations"`
		Advice          string   `json:"advice"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("symptoms: decode model response: %w", err)
	}

	urgency := Urgency(strings.ToLower(parsed.Urgency))
	switch urgency {
	case UrgencyLow, UrgencyModerate, UrgencyHigh, UrgencyEmergency:
	default:
		return nil, fmt.Errorf("symptoms: model returned unknown urgency %q", parsed.Urgency)
	}
	if len(parsed.Specializations) == 0 {
		parsed.Specializations = []string{"general medicine"}
	}

	return &Analysis{
		Urgency:         urgency,
		Specializations: parsed.Specializations,
		Advice:          parsed.Advice,
		Source:          source,
	}, nil
}

var _ Analyzer = (*BedrockAnalyzer)(nil)
