package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/adapters/stats"
	"github.com/despamly/despamly/internal/config"
	"github.com/despamly/despamly/internal/core"
)

// StatsFactory creates counter sinks based on configuration.
type StatsFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStatsFactory creates a new stats factory.
func NewStatsFactory(cfg *config.Config, logger *zap.Logger) *StatsFactory {
	return &StatsFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCounterSink creates a counter sink based on the configuration.
func (f *StatsFactory) CreateCounterSink() (core.CounterSink, error) {
	statsCfg := f.cfg.GetStats()

	switch statsCfg.Backend {
	case "memory":
		return stats.NewMemorySink(), nil
	case "prometheus":
		return stats.NewPromSink(statsCfg.ListenAddress, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported stats backend: %s", statsCfg.Backend)
	}
}
