package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/adapters/intake"
	"github.com/despamly/despamly/internal/adapters/policystore"
	"github.com/despamly/despamly/internal/adapters/transport"
	"github.com/despamly/despamly/internal/config"
	"github.com/despamly/despamly/internal/core"
	"github.com/despamly/despamly/internal/factory"
	"github.com/despamly/despamly/internal/logging"
	"github.com/despamly/despamly/internal/notify"
	"github.com/despamly/despamly/internal/pairing"
	"github.com/despamly/despamly/internal/ports"
	"github.com/despamly/despamly/internal/ratelimit"
	"github.com/despamly/despamly/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewEstimatorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStatsFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *utils.TextProcessor {
		return utils.NewTextProcessor(cfg.GetEstimators().MaxTextSize, logger)
	}); err != nil {
		return nil, err
	}

	// Register estimator ensemble
	if err := container.Provide(func(f *factory.EstimatorFactory) (factory.EstimatorSet, error) {
		return f.CreateEstimators()
	}); err != nil {
		return nil, err
	}

	// Register counter sink
	if err := container.Provide(func(f *factory.StatsFactory) (core.CounterSink, error) {
		return f.CreateCounterSink()
	}); err != nil {
		return nil, err
	}

	// Register flood detector
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*ratelimit.Limiter, error) {
		rlCfg, err := cfg.GetRateLimit()
		if err != nil {
			return nil, err
		}
		return ratelimit.NewLimiter(ratelimit.Limits{
			PerBurst:      rlCfg.PerBurst,
			PerWindow:     rlCfg.PerWindow,
			BurstWindow:   rlCfg.BurstWindow,
			Window:        rlCfg.Window,
			SweepInterval: rlCfg.SweepInterval,
		}, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register alert buffer and dispatcher
	if err := container.Provide(func(cfg *config.Config) (*notify.Buffer, error) {
		notifyCfg, err := cfg.GetNotifications()
		if err != nil {
			return nil, err
		}
		return notify.NewBuffer(notify.Policy{
			BatchThreshold:     notifyCfg.BatchThreshold,
			IndividualInterval: notifyCfg.IndividualInterval,
		}), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(notify.NewDispatcher); err != nil {
		return nil, err
	}

	// Register pairing handshake
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*pairing.Handshake, error) {
		pairingCfg, err := cfg.GetPairing()
		if err != nil {
			return nil, err
		}
		return pairing.NewHandshake(pairingCfg.TokenTTL, logger), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(pairing.NewBinder); err != nil {
		return nil, err
	}

	// Register policy store
	if err := container.Provide(policystore.NewMemoryStore); err != nil {
		return nil, err
	}
	if err := container.Provide(func(store *policystore.MemoryStore) core.PolicyStore {
		return store
	}); err != nil {
		return nil, err
	}

	// Register transport
	if err := container.Provide(func(logger *zap.Logger) core.Transport {
		return transport.NewLoggingTransport(logger)
	}); err != nil {
		return nil, err
	}

	// Register core engine pieces
	if err := container.Provide(core.NewScoreAggregator); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewPolicyEngine); err != nil {
		return nil, err
	}

	// Register pipeline
	if err := container.Provide(func(
		set factory.EstimatorSet,
		aggregator *core.ScoreAggregator,
		engine *core.PolicyEngine,
		limiter *ratelimit.Limiter,
		policies core.PolicyStore,
		counters core.CounterSink,
		tr core.Transport,
		dispatcher *notify.Dispatcher,
		processor *utils.TextProcessor,
		logger *zap.Logger,
	) *core.ModerationPipeline {
		return core.NewModerationPipeline(core.PipelineParams{
			Keyword:     set.Keyword,
			Statistical: set.Statistical,
			Feature:     set.Feature,
			Aggregator:  aggregator,
			Engine:      engine,
			Limiter:     limiter,
			Policies:    policies,
			Counters:    counters,
			Transport:   tr,
			Alerts:      dispatcher,
			Normalizer:  processor,
			Logger:      logger,
		})
	}); err != nil {
		return nil, err
	}

	// Register message intake
	if err := container.Provide(func(pipeline *core.ModerationPipeline, cfg *config.Config, logger *zap.Logger) ports.MessageIntake {
		return intake.NewStdinIntake(pipeline, cfg.GetIntake().Workers, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
