package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

// NgramModel is the serialized form of the statistical classifier: a
// logistic regression over character n-gram counts, exported by the training
// pipeline.
type NgramModel struct {
	MinN    int                `json:"min_n"`
	MaxN    int                `json:"max_n"`
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// NgramEstimator is the statistical text classifier. When no model file is
// available it degrades to the neutral score rather than failing the
// ensemble; the service keeps moderating on the other two estimators.
type NgramEstimator struct {
	model  *NgramModel
	logger *zap.Logger
}

// NewNgramEstimator loads the model from path. A missing or unreadable model
// is logged and leaves the estimator in degraded mode; it is not an error.
func NewNgramEstimator(path string, logger *zap.Logger) *NgramEstimator {
	est := &NgramEstimator{logger: logger}
	if path == "" {
		logger.Warn("No n-gram model path configured, statistical estimator degraded")
		return est
	}

	model, err := loadNgramModel(path)
	if err != nil {
		logger.Warn("Failed to load n-gram model, statistical estimator degraded",
			zap.String("path", path),
			zap.Error(err))
		return est
	}

	est.model = model
	logger.Info("Loaded n-gram model",
		zap.String("path", path),
		zap.Int("ngrams", len(model.Weights)))
	return est
}

func loadNgramModel(path string) (*NgramModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var model NgramModel
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	if model.MinN <= 0 || model.MaxN < model.MinN {
		return nil, fmt.Errorf("invalid n-gram range [%d,%d]", model.MinN, model.MaxN)
	}
	return &model, nil
}

// Ready reports whether a model is loaded.
func (e *NgramEstimator) Ready() bool {
	return e.model != nil
}

// Name implements core.Estimator.
func (e *NgramEstimator) Name() string {
	return core.EstimatorStatistical
}

// Score runs the logistic model over the message's character n-grams.
func (e *NgramEstimator) Score(_ context.Context, text string, _ *core.MessageContext) (core.FilterScore, error) {
	if e.model == nil {
		return core.NeutralScore(core.EstimatorStatistical, "model not loaded"), nil
	}

	z := e.model.Bias
	hits := 0
	lower := strings.ToLower(text)
	runes := []rune(lower)
	for n := e.model.MinN; n <= e.model.MaxN; n++ {
		for i := 0; i+n <= len(runes); i++ {
			if w, ok := e.model.Weights[string(runes[i:i+n])]; ok {
				z += w
				hits++
			}
		}
	}

	probability := sigmoid(z)
	confidence := math.Abs(probability-0.5) * 2

	return core.FilterScore{
		Estimator:   core.EstimatorStatistical,
		Probability: probability,
		Confidence:  confidence,
		Details: map[string]string{
			"ngram_hits": strconv.Itoa(hits),
		},
	}, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
