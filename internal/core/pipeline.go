package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TextNormalizer prepares raw message text before it reaches the estimators.
type TextNormalizer interface {
	Normalize(text string) string
}

// ModerationPipeline orchestrates the full per-message flow: rate-limit
// check, ensemble scoring, policy decision, side-effect dispatch and alert
// enqueueing. One Handle call per inbound message; many Handle calls run
// concurrently across worker goroutines.
type ModerationPipeline struct {
	keyword     Estimator
	statistical Estimator
	feature     Estimator

	aggregator *ScoreAggregator
	engine     *PolicyEngine
	limiter    FloodDetector
	policies   PolicyStore
	counters   CounterSink
	transport  Transport
	alerts     AlertPublisher
	normalizer TextNormalizer
	logger     *zap.Logger
	now        func() time.Time
}

// PipelineParams collects the pipeline's collaborators.
type PipelineParams struct {
	Keyword     Estimator
	Statistical Estimator
	Feature     Estimator
	Aggregator  *ScoreAggregator
	Engine      *PolicyEngine
	Limiter     FloodDetector
	Policies    PolicyStore
	Counters    CounterSink
	Transport   Transport
	Alerts      AlertPublisher
	Normalizer  TextNormalizer
	Logger      *zap.Logger
}

// NewModerationPipeline creates a new moderation pipeline.
func NewModerationPipeline(p PipelineParams) *ModerationPipeline {
	return &ModerationPipeline{
		keyword:     p.Keyword,
		statistical: p.Statistical,
		feature:     p.Feature,
		aggregator:  p.Aggregator,
		engine:      p.Engine,
		limiter:     p.Limiter,
		policies:    p.Policies,
		counters:    p.Counters,
		transport:   p.Transport,
		alerts:      p.Alerts,
		normalizer:  p.Normalizer,
		logger:      p.Logger,
		now:         time.Now,
	}
}

// WithClock overrides the pipeline's clock. For tests.
func (pl *ModerationPipeline) WithClock(now func() time.Time) *ModerationPipeline {
	pl.now = now
	return pl
}

// Handle runs one inbound message through the pipeline and returns the final
// verdict. Side-effect failures (delete/ban/alert) are logged and absorbed:
// enforcement is best effort, observability is not rolled back.
func (pl *ModerationPipeline) Handle(ctx context.Context, msg Message, msgCtx *MessageContext) (Verdict, error) {
	log := pl.logger.With(
		zap.String("processing_id", uuid.NewString()),
		zap.Int64("tenant_id", msg.TenantID),
		zap.Int64("message_id", msg.ID),
		zap.Int64("sender_id", msg.SenderID),
	)

	policy, err := pl.policies.GetPolicy(ctx, msg.TenantID)
	if err != nil {
		if errors.Is(err, ErrPolicyMissing) {
			log.Debug("Tenant not registered, approving")
			return VerdictApprove, nil
		}
		return VerdictApprove, err
	}
	if !policy.IsActive || msg.SenderID == 0 || strings.TrimSpace(msg.Text) == "" {
		return VerdictApprove, nil
	}

	if policy.IsWhitelisted(msg.Sender) {
		log.Debug("Sender whitelisted, skipping analysis", zap.String("sender", msg.Sender))
		return VerdictApprove, nil
	}

	now := pl.now()
	if pl.limiter.RecordAndCheck(msg.TenantID, msg.SenderID, now) {
		log.Warn("Flood detected, deleting without analysis")
		if err := pl.transport.DeleteMessage(ctx, msg.TenantID, msg.ID); err != nil {
			log.Error("Failed to delete flood message", zap.Error(err))
		}
		return VerdictDelete, nil
	}

	text := pl.normalizer.Normalize(msg.Text)
	result := pl.analyze(ctx, log, text, msgCtx)

	verdict, err := pl.engine.Decide(result, *policy)
	if err != nil {
		log.Error("Policy decision failed, approving", zap.Error(err))
		return VerdictApprove, err
	}

	log.Info("Message analyzed",
		zap.Float64("score", result.GoverningScore()),
		zap.Float64("weighted_score", result.WeightedScore()),
		zap.String("verdict", verdict.String()),
		zap.String("mode", policy.Mode.String()))

	if verdict == VerdictApprove {
		pl.increment(ctx, log, msg.TenantID, now, Counters{Processed: 1})
		return VerdictApprove, nil
	}

	delta := Counters{Processed: 1, SpamDetected: 1}

	switch verdict {
	case VerdictDelete:
		if err := pl.transport.DeleteMessage(ctx, msg.TenantID, msg.ID); err != nil {
			log.Error("Failed to delete message", zap.Error(err))
		} else {
			delta.Deleted = 1
		}

	case VerdictKick:
		if err := pl.transport.DeleteMessage(ctx, msg.TenantID, msg.ID); err != nil {
			log.Error("Failed to delete message", zap.Error(err))
		} else {
			delta.Deleted = 1
		}
		// Soft-ban: ban then immediately unban, removing membership without
		// leaving a permanent block record.
		if err := pl.transport.Ban(ctx, msg.TenantID, msg.SenderID); err != nil {
			log.Error("Failed to ban sender", zap.Error(err))
		} else {
			delta.Banned = 1
			if err := pl.transport.Unban(ctx, msg.TenantID, msg.SenderID); err != nil {
				log.Error("Failed to unban sender after soft-ban", zap.Error(err))
			}
		}
	}

	pl.increment(ctx, log, msg.TenantID, now, delta)

	alert := PendingAlert{
		TenantID:   msg.TenantID,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		SenderName: msg.Sender,
		Text:       text,
		Score:      result.GoverningScore(),
		Verdict:    verdict,
		CreatedAt:  now,
	}
	if err := pl.alerts.Publish(ctx, policy.AlertDestination(), alert); err != nil {
		log.Error("Failed to publish alert", zap.Error(err))
	}

	return verdict, nil
}

// analyze runs the three estimators concurrently and aggregates their
// scores. Estimator errors degrade to the neutral score.
func (pl *ModerationPipeline) analyze(ctx context.Context, log *zap.Logger, text string, msgCtx *MessageContext) AnalysisResult {
	var keyword, statistical, feature FilterScore

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keyword = pl.scoreOrNeutral(gctx, log, pl.keyword, text, msgCtx)
		return nil
	})
	g.Go(func() error {
		statistical = pl.scoreOrNeutral(gctx, log, pl.statistical, text, msgCtx)
		return nil
	})
	g.Go(func() error {
		feature = pl.scoreOrNeutral(gctx, log, pl.feature, text, msgCtx)
		return nil
	})
	_ = g.Wait()

	return pl.aggregator.Aggregate(keyword, statistical, feature, msgCtx)
}

func (pl *ModerationPipeline) scoreOrNeutral(ctx context.Context, log *zap.Logger, est Estimator, text string, msgCtx *MessageContext) FilterScore {
	score, err := est.Score(ctx, text, msgCtx)
	if err != nil {
		log.Warn("Estimator degraded, using neutral score",
			zap.String("estimator", est.Name()),
			zap.Error(err))
		return NeutralScore(est.Name(), err.Error())
	}
	return score
}

func (pl *ModerationPipeline) increment(ctx context.Context, log *zap.Logger, tenantID int64, now time.Time, delta Counters) {
	if err := pl.counters.Increment(ctx, tenantID, now, delta); err != nil {
		log.Warn("Failed to increment counters", zap.Error(err))
	}
}
