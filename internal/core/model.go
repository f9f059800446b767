package core

import (
	"fmt"
	"time"
)

// Names of the three estimators in the ensemble, in aggregation order.
const (
	EstimatorKeyword     = "keyword"
	EstimatorStatistical = "statistical"
	EstimatorFeature     = "feature_based"
)

// FilterScore is the output of a single estimator for one message.
type FilterScore struct {
	Estimator   string
	Probability float64
	Confidence  float64
	Details     map[string]string
}

// Degraded reports whether the estimator failed to produce a real score and
// fell back to the neutral placeholder.
func (s FilterScore) Degraded() bool {
	return s.Confidence == 0
}

// NeutralScore is the placeholder an estimator contributes when it cannot
// produce a real score. The pipeline never aborts on estimator failure.
func NeutralScore(estimator string, reason string) FilterScore {
	score := FilterScore{
		Estimator:   estimator,
		Probability: 0.5,
		Confidence:  0.0,
	}
	if reason != "" {
		score.Details = map[string]string{"degraded": reason}
	}
	return score
}

// Message is one inbound chat message as handed over by the transport layer.
type Message struct {
	ID       int64
	TenantID int64
	SenderID int64
	Sender   string
	Text     string
}

// MessageContext carries the transport metadata the feature-based estimator
// consumes. Built once per message; treated as immutable afterwards.
type MessageContext struct {
	MessageID          int64
	SenderID           int64
	SenderName         string
	TenantID           int64
	Timestamp          time.Time
	IsReply            bool
	ReplyTargetIsStaff bool
	IsForwarded        bool
	SenderIsStaff      bool
	IsChannelBroadcast bool
}

// Ensemble weights. They sum to 1.0.
const (
	weightKeyword     = 0.20
	weightStatistical = 0.40
	weightFeature     = 0.40

	// highScore is the per-estimator bar for AllHigh, inclusive.
	highScore = 0.70
)

// AnalysisResult is the combined output of the three estimators for one
// message. Exactly one score per estimator, in fixed order.
type AnalysisResult struct {
	Keyword      FilterScore
	Statistical  FilterScore
	FeatureBased FilterScore
	Context      *MessageContext
}

// Scores returns the estimator scores in aggregation order.
func (r AnalysisResult) Scores() []FilterScore {
	return []FilterScore{r.Keyword, r.Statistical, r.FeatureBased}
}

// WeightedScore blends the three probabilities: 0.20 keyword, 0.40
// statistical, 0.40 feature-based.
func (r AnalysisResult) WeightedScore() float64 {
	return r.Keyword.Probability*weightKeyword +
		r.Statistical.Probability*weightStatistical +
		r.FeatureBased.Probability*weightFeature
}

// MaxScore returns the highest of the three probabilities.
func (r AnalysisResult) MaxScore() float64 {
	max := r.Keyword.Probability
	if r.Statistical.Probability > max {
		max = r.Statistical.Probability
	}
	if r.FeatureBased.Probability > max {
		max = r.FeatureBased.Probability
	}
	return max
}

// AllHigh reports whether every estimator scored at least 0.70.
func (r AnalysisResult) AllHigh() bool {
	return r.Keyword.Probability >= highScore &&
		r.Statistical.Probability >= highScore &&
		r.FeatureBased.Probability >= highScore
}

// GoverningScore is the signal the policy engine acts on. The feature-based
// estimator is the most context-aware, so its raw probability is
// authoritative when it produced a real score; when it is degraded the
// blended weighted score is used instead.
func (r AnalysisResult) GoverningScore() float64 {
	if !r.FeatureBased.Degraded() {
		return r.FeatureBased.Probability
	}
	return r.WeightedScore()
}

// Verdict is the terminal action decision for one message.
type Verdict int

const (
	VerdictApprove Verdict = iota
	VerdictNotify
	VerdictDelete
	VerdictKick
)

func (v Verdict) String() string {
	switch v {
	case VerdictApprove:
		return "approve"
	case VerdictNotify:
		return "notify"
	case VerdictDelete:
		return "delete"
	case VerdictKick:
		return "kick"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// PolicyMode selects how a tenant wants detections acted on.
type PolicyMode int

const (
	ModeNotifyOnly PolicyMode = iota
	ModeDeleteOnly
	ModeDeleteAndBan
)

func (m PolicyMode) String() string {
	switch m {
	case ModeNotifyOnly:
		return "notify_only"
	case ModeDeleteOnly:
		return "delete_only"
	case ModeDeleteAndBan:
		return "delete_and_ban"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParsePolicyMode converts a stored mode tag into a PolicyMode. An unknown
// tag is a configuration error, never an implicit delete_only.
func ParsePolicyMode(tag string) (PolicyMode, error) {
	switch tag {
	case "notify_only":
		return ModeNotifyOnly, nil
	case "delete_only":
		return ModeDeleteOnly, nil
	case "delete_and_ban":
		return ModeDeleteAndBan, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicyMode, tag)
	}
}

// TenantPolicy is the per-tenant moderation configuration. It is owned by the
// external config store and read-only to this engine.
type TenantPolicy struct {
	TenantID           int64
	OwnerID            int64
	Mode               PolicyMode
	DeleteThreshold    float64
	KickThreshold      float64
	IsActive           bool
	Whitelist          []string
	SecondaryChannelID int64
}

// Validate enforces 0 <= delete_threshold <= kick_threshold <= 1.
func (p TenantPolicy) Validate() error {
	if p.DeleteThreshold < 0 || p.DeleteThreshold > 1 {
		return fmt.Errorf("delete threshold %v out of range [0,1]", p.DeleteThreshold)
	}
	if p.KickThreshold < 0 || p.KickThreshold > 1 {
		return fmt.Errorf("kick threshold %v out of range [0,1]", p.KickThreshold)
	}
	if p.DeleteThreshold > p.KickThreshold {
		return fmt.Errorf("delete threshold %v exceeds kick threshold %v", p.DeleteThreshold, p.KickThreshold)
	}
	return nil
}

// IsWhitelisted reports whether a sender identifier is exempt from scoring.
func (p TenantPolicy) IsWhitelisted(sender string) bool {
	for _, entry := range p.Whitelist {
		if entry == sender {
			return true
		}
	}
	return false
}

// AlertDestination is where this tenant's alerts go: the bound secondary
// channel when one exists, otherwise the owner directly.
func (p TenantPolicy) AlertDestination() int64 {
	if p.SecondaryChannelID != 0 {
		return p.SecondaryChannelID
	}
	return p.OwnerID
}

// PendingAlert is one owner notification buffered for delivery.
type PendingAlert struct {
	TenantID   int64
	MessageID  int64
	SenderID   int64
	SenderName string
	Text       string
	Score      float64
	Verdict    Verdict
	CreatedAt  time.Time
}

// PairingToken binds an owner to a pending secondary-destination handshake.
// Single-use; destroyed on redemption or expiry.
type PairingToken struct {
	Token     string
	TenantID  int64
	OwnerID   int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Counters is one day's worth of per-tenant statistics deltas.
type Counters struct {
	Processed    int
	SpamDetected int
	Deleted      int
	Banned       int
}
