package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/adapters/bedrock"
	"github.com/despamly/despamly/internal/adapters/estimator"
	"github.com/despamly/despamly/internal/adapters/gemini"
	"github.com/despamly/despamly/internal/adapters/openai"
	"github.com/despamly/despamly/internal/config"
	"github.com/despamly/despamly/internal/core"
)

// EstimatorSet is the complete ensemble, one estimator per slot.
type EstimatorSet struct {
	Keyword     core.Estimator
	Statistical core.Estimator
	Feature     core.Estimator
}

// EstimatorFactory builds the ensemble from configuration.
type EstimatorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewEstimatorFactory creates a new estimator factory.
func NewEstimatorFactory(cfg *config.Config, logger *zap.Logger) *EstimatorFactory {
	return &EstimatorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEstimators builds the three-slot ensemble. The keyword and
// feature-based slots are always local; the statistical slot is selectable
// between the local n-gram model and an LLM provider.
func (f *EstimatorFactory) CreateEstimators() (EstimatorSet, error) {
	estCfg := f.cfg.GetEstimators()

	statistical, err := f.createStatistical(estCfg)
	if err != nil {
		return EstimatorSet{}, err
	}

	return EstimatorSet{
		Keyword:     estimator.NewKeywordEstimator(f.logger),
		Statistical: statistical,
		Feature:     estimator.NewFeatureEstimator(estCfg.FeatureModelPath, f.logger),
	}, nil
}

func (f *EstimatorFactory) createStatistical(estCfg config.EstimatorsConfig) (core.Estimator, error) {
	switch estCfg.StatisticalProvider {
	case "ngram":
		return estimator.NewNgramEstimator(estCfg.NgramModelPath, f.logger), nil
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateEstimator()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateEstimator()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateEstimator()
	default:
		return nil, fmt.Errorf("unsupported statistical estimator provider: %s", estCfg.StatisticalProvider)
	}
}
