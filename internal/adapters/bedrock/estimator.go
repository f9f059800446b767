package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

// Estimator backs the statistical slot of the ensemble with an Amazon
// Bedrock model. Provider failures surface as errors; the pipeline degrades
// them to the neutral score.
type Estimator struct {
	client       *bedrockruntime.Client
	modelID      string
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

// NewEstimator creates a new Bedrock-backed estimator.
func NewEstimator(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Estimator {
	return &Estimator{
		client:      client,
		modelID:     modelID,
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

// Score invokes the configured Bedrock model and parses its estimate.
func (e *Estimator) Score(ctx context.Context, text string, msgCtx *core.MessageContext) (core.FilterScore, error) {
	sender := "an unknown sender"
	if msgCtx != nil && msgCtx.SenderName != "" {
		sender = msgCtx.SenderName
	}
	prompt := fmt.Sprintf(e.promptFormat, sender, text)

	payload, err := e.buildPayload(prompt)
	if err != nil {
		return core.FilterScore{}, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &e.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return core.FilterScore{}, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := e.extractText(resp.Body)
	if err != nil {
		return core.FilterScore{}, err
	}

	estimate, err := parseEstimate(responseText)
	if err != nil {
		return core.FilterScore{}, err
	}

	e.logger.Debug("Bedrock estimate",
		zap.Float64("probability", estimate.Probability),
		zap.Float64("confidence", estimate.Confidence),
		zap.String("model", e.modelID))

	return core.FilterScore{
		Estimator:   core.EstimatorStatistical,
		Probability: estimate.Probability,
		Confidence:  estimate.Confidence,
		Details: map[string]string{
			"model":  e.modelID,
			"reason": estimate.Reason,
		},
	}, nil
}

// buildPayload shapes the request for the model family in use.
func (e *Estimator) buildPayload(prompt string) ([]byte, error) {
	switch {
	case e.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": e.maxTokens,
			"temperature":          e.temperature,
			"top_p":                e.topP,
		})
	case e.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": e.maxTokens,
				"temperature":   e.temperature,
				"topP":          e.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  e.maxTokens,
			"temperature": e.temperature,
			"top_p":       e.topP,
		})
	}
}

// extractText pulls the generated text out of the model-family-specific
// response envelope.
func (e *Estimator) extractText(body []byte) (string, error) {
	switch {
	case e.isAnthropicModel():
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil

	case e.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil

	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		switch {
		case genericResp.Output != "":
			return genericResp.Output, nil
		case genericResp.Text != "":
			return genericResp.Text, nil
		case genericResp.Response != "":
			return genericResp.Response, nil
		default:
			return string(body), nil
		}
	}
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

func (e *Estimator) isAnthropicModel() bool {
	return strings.HasPrefix(e.modelID, "anthropic.claude")
}

func (e *Estimator) isAmazonTitanModel() bool {
	return strings.HasPrefix(e.modelID, "amazon.titan")
}
