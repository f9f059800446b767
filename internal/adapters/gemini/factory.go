package gemini

import (
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/config"
	"github.com/despamly/despamly/internal/core"
)

// Factory creates Gemini-backed estimators from configuration.
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Gemini estimators.
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEstimator creates a new Gemini-backed estimator.
func (f *Factory) CreateEstimator() (core.Estimator, error) {
	geminiCfg := f.cfg.GetGemini()

	return NewEstimator(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		f.logger,
	)
}
