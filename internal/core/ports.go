package core

import (
	"context"
	"time"
)

// Estimator is one independent spam-probability scorer. Implementations are
// black boxes to the engine; an estimator that cannot produce a real score
// should either return NeutralScore itself or return an error, which the
// pipeline converts to the neutral score.
type Estimator interface {
	// Name identifies the estimator slot (keyword, statistical, feature_based).
	Name() string

	// Score estimates the spam probability of a message text. The context may
	// be nil when transport metadata is unavailable.
	Score(ctx context.Context, text string, msgCtx *MessageContext) (FilterScore, error)
}

// PolicyPatch is a partial update to a tenant policy. Nil fields are left
// untouched.
type PolicyPatch struct {
	Mode               *PolicyMode
	DeleteThreshold    *float64
	KickThreshold      *float64
	IsActive           *bool
	Whitelist          *[]string
	SecondaryChannelID *int64
}

// PolicyStore is the external tenant configuration store.
type PolicyStore interface {
	// GetPolicy returns the policy for a tenant, or ErrPolicyMissing.
	GetPolicy(ctx context.Context, tenantID int64) (*TenantPolicy, error)

	// UpdatePolicy applies a partial update to an existing policy.
	UpdatePolicy(ctx context.Context, tenantID int64, patch PolicyPatch) error
}

// CounterSink records per-tenant daily statistics.
type CounterSink interface {
	Increment(ctx context.Context, tenantID int64, day time.Time, delta Counters) error
}

// Transport is the narrow surface of the chat platform the engine acts
// through. Any call may fail (for example on missing permissions); failures
// are logged and never rolled back.
type Transport interface {
	DeleteMessage(ctx context.Context, tenantID, messageID int64) error
	Ban(ctx context.Context, tenantID, senderID int64) error
	Unban(ctx context.Context, tenantID, senderID int64) error
	SendAlert(ctx context.Context, destination int64, payload AlertPayload) error
}

// AlertKind is the delivery shape of an outgoing alert.
type AlertKind int

const (
	// AlertIndividual is a single detailed message with action buttons.
	AlertIndividual AlertKind = iota
	// AlertDigest is a grouped summary of several detections.
	AlertDigest
)

// AlertPayload is one rendered owner alert ready for the transport.
type AlertPayload struct {
	Kind   AlertKind
	Text   string
	Alerts []PendingAlert
}

// FloodDetector flags abusive message bursts before scoring.
type FloodDetector interface {
	// RecordAndCheck reports whether this event makes the sender a flooder.
	// A flagged event is not recorded.
	RecordAndCheck(tenantID, senderID int64, now time.Time) bool
}

// AlertPublisher accepts alerts for batched delivery to a destination.
type AlertPublisher interface {
	Publish(ctx context.Context, destination int64, alert PendingAlert) error
}
