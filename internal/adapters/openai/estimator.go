package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

// Estimator backs the statistical slot of the ensemble with an OpenAI chat
// model. Provider failures surface as errors; the pipeline degrades them to
// the neutral score.
type Estimator struct {
	client       *openai.Client
	modelName    string
	maxTokens    int
	temperature  float32
	topP         float32
	logger       *zap.Logger
	promptFormat string
}

// spamEstimate is the structured response requested from the model.
type spamEstimate struct {
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// NewEstimator creates a new OpenAI-backed estimator.
func NewEstimator(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Estimator {
	return &Estimator{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
		promptFormat: `You are a chat spam detection system. Estimate the probability that the following chat message is spam.
Respond with a JSON object containing:
- probability: number between 0 and 1 (higher means more likely to be spam)
- confidence: number between 0 and 1 (how confident you are in your estimate)
- reason: string (brief explanation)

Message from %s:
%s

Respond only with the JSON object and nothing else.`,
	}
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

	req := openai.ChatCompletionRequest{
		Model: e.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a chat spam detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
		TopP:        e.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: "json",
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return core.FilterScore{}, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return core.FilterScore{}, fmt.Errorf("empty response from OpenAI")
	}

	estimate, err := parseEstimate(resp.Choices[0].Message.Content)
	if err != nil {
		return core.FilterScore{}, err
	}

	e.logger.Debug("OpenAI estimate",
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

// parseEstimate unmarshals the model output, tolerating prose around the
// JSON object.
func parseEstimate(responseText string) (spamEstimate, error) {
	var estimate spamEstimate
	if err := json.Unmarshal([]byte(responseText), &estimate); err == nil {
		return estimate, nil
	}

	jsonStart := -1
	jsonEnd := -1
	for i := 0; i < len(responseText); i++ {
		if responseText[i] == '{' {
			jsonStart = i
			break
		}
	}
	for i := len(responseText) - 1; i >= 0; i-- {
		if responseText[i] == '}' {
			jsonEnd = i + 1
			break
		}
	}
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return estimate, fmt.Errorf("failed to extract JSON from LLM response")
	}
	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &estimate); err != nil {
		return estimate, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return estimate, nil
}
