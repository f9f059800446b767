package core

import (
	"go.uber.org/zap"
)

// PolicyEngine maps an analysis result and a tenant policy to a verdict.
// It is stateless: the same (result, policy) pair always yields the same
// verdict. Pre-conditions (tenant active, sender not whitelisted, message not
// flagged as flood) are enforced by the pipeline before scoring, keeping the
// cheap checks ahead of the expensive ensemble.
type PolicyEngine struct {
	logger *zap.Logger
}

// NewPolicyEngine creates a new policy engine.
func NewPolicyEngine(logger *zap.Logger) *PolicyEngine {
	return &PolicyEngine{logger: logger}
}

// Decide evaluates the decision table top to bottom, first match wins.
// The governing signal is the feature-based probability when present,
// otherwise the blended weighted score. An unknown policy mode is a
// configuration error.
func (e *PolicyEngine) Decide(result AnalysisResult, policy TenantPolicy) (Verdict, error) {
	score := result.GoverningScore()

	switch policy.Mode {
	case ModeNotifyOnly:
		if score >= policy.DeleteThreshold {
			return VerdictNotify, nil
		}
		return VerdictApprove, nil

	case ModeDeleteAndBan:
		if score >= policy.KickThreshold {
			return VerdictKick, nil
		}
		if score >= policy.DeleteThreshold {
			return VerdictDelete, nil
		}
		return VerdictApprove, nil

	case ModeDeleteOnly:
		if score >= policy.DeleteThreshold {
			return VerdictDelete, nil
		}
		return VerdictApprove, nil

	default:
		e.logger.Error("Tenant policy has unknown mode",
			zap.Int64("tenant_id", policy.TenantID),
			zap.Int("mode", int(policy.Mode)))
		return VerdictApprove, ErrUnknownPolicyMode
	}
}
