package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

// FeatureModel is the serialized coefficient set for the feature-based
// classifier. Feature names must match the extractor below.
type FeatureModel struct {
	Bias         float64            `json:"bias"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// defaultFeatureModel approximates the trained model closely enough for
// environments without a model file. Replaced wholesale when a file loads.
func defaultFeatureModel() *FeatureModel {
	return &FeatureModel{
		Bias: -2.2,
		Coefficients: map[string]float64{
			"has_phone":         1.1,
			"has_url":           0.9,
			"has_email":         0.5,
			"has_money":         1.2,
			"money_count":       0.3,
			"has_cta":           0.8,
			"has_dm":            1.3,
			"has_casino":        1.6,
			"obfuscation":       1.4,
			"caps_ratio":        0.9,
			"reply_to_staff":    -0.8,
			"is_forwarded":      0.6,
			"sender_is_staff":   -1.6,
			"channel_broadcast": -0.7,
		},
	}
}

// FeatureEstimator is the context-aware member of the ensemble: it combines
// text-pattern features with transport metadata flags under a logistic
// model. It is the only estimator that reads MessageContext, which is why
// its probability governs the verdict when available.
type FeatureEstimator struct {
	model  *FeatureModel
	logger *zap.Logger

	rePhone       *regexp.Regexp
	reURL         *regexp.Regexp
	reEmail       *regexp.Regexp
	reMoney       *regexp.Regexp
	reCTA         *regexp.Regexp
	reDM          *regexp.Regexp
	reCasino      *regexp.Regexp
	reObfuscation *regexp.Regexp
}

// NewFeatureEstimator creates the feature-based estimator. path may name a
// JSON coefficient file; when empty or unreadable the bundled defaults
// apply.
func NewFeatureEstimator(path string, logger *zap.Logger) *FeatureEstimator {
	model := defaultFeatureModel()
	if path != "" {
		loaded, err := loadFeatureModel(path)
		if err != nil {
			logger.Warn("Failed to load feature model, using bundled coefficients",
				zap.String("path", path),
				zap.Error(err))
		} else {
			model = loaded
			logger.Info("Loaded feature model",
				zap.String("path", path),
				zap.Int("coefficients", len(model.Coefficients)))
		}
	}

	return &FeatureEstimator{
		model:         model,
		logger:        logger,
		rePhone:       regexp.MustCompile(`\+?\d[\d\s\-()]{9,}`),
		reURL:         regexp.MustCompile(`(?i)https?://|bit\.ly|t\.me/`),
		reEmail:       regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`),
		reMoney:       regexp.MustCompile(`(?i)[$€£₽]\s*\d+|\d+\s*[$€£₽]|easy\s+money|passive\s+income`),
		reCTA:         regexp.MustCompile(`(?i)\b(?:click|join\s+now|sign\s+up|register|claim)\b`),
		reDM:          regexp.MustCompile(`(?i)\b(?:dm\s+me|write\s+me|message\s+me|in\s+private)\b`),
		reCasino:      regexp.MustCompile(`(?i)\b(?:casino|slots?|jackpot|betting|deposit\s+bonus)\b`),
		reObfuscation: regexp.MustCompile(`[@#$%&*]{1,}[\p{L}]{2,}|[\p{L}]{2,}[@#$%&*]{1,}`),
	}
}

func loadFeatureModel(path string) (*FeatureModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var model FeatureModel
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	if len(model.Coefficients) == 0 {
		return nil, fmt.Errorf("model has no coefficients")
	}
	return &model, nil
}

// Name implements core.Estimator.
func (e *FeatureEstimator) Name() string {
	return core.EstimatorFeature
}

// Score extracts the feature vector and applies the logistic model.
func (e *FeatureEstimator) Score(_ context.Context, text string, msgCtx *core.MessageContext) (core.FilterScore, error) {
	features := e.extract(text, msgCtx)

	z := e.model.Bias
	for name, value := range features {
		z += e.model.Coefficients[name] * value
	}
	probability := sigmoid(z)

	return core.FilterScore{
		Estimator:   core.EstimatorFeature,
		Probability: probability,
		Confidence:  math.Abs(probability-0.5) * 2,
		Details: map[string]string{
			"features": strconv.Itoa(len(features)),
		},
	}, nil
}

func (e *FeatureEstimator) extract(text string, msgCtx *core.MessageContext) map[string]float64 {
	lower := strings.ToLower(text)
	features := map[string]float64{
		"has_phone":   boolFeature(e.rePhone.MatchString(text)),
		"has_url":     boolFeature(e.reURL.MatchString(text)),
		"has_email":   boolFeature(e.reEmail.MatchString(text)),
		"has_cta":     boolFeature(e.reCTA.MatchString(lower)),
		"has_dm":      boolFeature(e.reDM.MatchString(lower)),
		"has_casino":  boolFeature(e.reCasino.MatchString(lower)),
		"obfuscation": boolFeature(e.reObfuscation.MatchString(text)),
		"caps_ratio":  capsRatio(text),
	}

	money := e.reMoney.FindAllString(lower, -1)
	features["has_money"] = boolFeature(len(money) > 0)
	features["money_count"] = float64(min(len(money), 5))

	if msgCtx != nil {
		features["reply_to_staff"] = boolFeature(msgCtx.IsReply && msgCtx.ReplyTargetIsStaff)
		features["is_forwarded"] = boolFeature(msgCtx.IsForwarded)
		features["sender_is_staff"] = boolFeature(msgCtx.SenderIsStaff)
		features["channel_broadcast"] = boolFeature(msgCtx.IsChannelBroadcast)
	}

	return features
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func capsRatio(text string) float64 {
	letters, upper := 0, 0
	for _, r := range text {
		if r >= 'A' && r <= 'Z' {
			upper++
			letters++
		} else if r >= 'a' && r <= 'z' {
			letters++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}
