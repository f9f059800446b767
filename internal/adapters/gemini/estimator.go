package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/despamly/despamly/internal/core"
)

// Estimator backs the statistical slot of the ensemble with a Google Gemini
// model. Provider failures surface as errors; the pipeline degrades them to
// the neutral score.
type Estimator struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	modelName    string
	logger       *zap.Logger
	promptFormat string
}

// spamEstimate is the structured response requested from the model.
type spamEstimate struct {
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// NewEstimator creates a new Gemini-backed estimator.
func NewEstimator(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*Estimator, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Estimator{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
		promptFormat: `You are a chat spam detection system. Estimate the probability that the following chat message is spam.
Respond with a JSON object containing:
- probability: number between 0 and 1 (higher means more likely to be spam)
- confidence: number between 0 and 1 (how confident you are in your estimate)
- reason: string (brief explanation)

Message from %s:
%s

Respond only with the JSON object and nothing else.`,
	}, nil
}

// Close closes the underlying Gemini client.
func (e *Estimator) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Name implements core.Estimator.
func (e *Estimator) Name() string {
	return core.EstimatorStatistical
}

// Score asks the model for a spam probability estimate.
func (e *Estimator) Score(ctx context.Context, text string, msgCtx *core.MessageContext) (core.FilterScore, error) {
	sender := "an unknown sender"
	if msgCtx != nil && msgCtx.SenderName != "" {
		sender = msgCtx.SenderName
	}
	prompt := fmt.Sprintf(e.promptFormat, sender, text)

	resp, err := e.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return core.FilterScore{}, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return core.FilterScore{}, fmt.Errorf("empty response from Gemini")
	}

	var responseText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			responseText += string(textPart)
		}
	}

	estimate, err := parseEstimate(responseText)
	if err != nil {
		return core.FilterScore{}, err
	}

	e.logger.Debug("Gemini estimate",
		zap.Float64("probability", estimate.Probability),
		zap.Float64("confidence", estimate.Confidence),
		zap.String("model", e.modelName))

	return core.FilterScore{
		Estimator:   core.EstimatorStatistical,
		Probability: estimate.Probability,
		Confidence:  estimate.Confidence,
		Details: map[string]string{
			"model":  e.modelName,
			"reason": estimate.Reason,
		},
	}, nil
}

func parseEstimate(responseText string) (spamEstimate, error) {
	var estimate spamEstimate
	if err := json.Unmarshal([]byte(responseText), &estimate); err == nil {
		return estimate, nil
	}

	jsonStart := strings.IndexByte(responseText, '{')
	jsonEnd := strings.LastIndexByte(responseText, '}')
	if jsonStart < 0 || jsonEnd < jsonStart {
		return estimate, fmt.Errorf("failed to extract JSON from LLM response")
	}
	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &estimate); err != nil {
		return estimate, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return estimate, nil
}
