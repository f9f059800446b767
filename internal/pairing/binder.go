package pairing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

// Binder completes the handshake: a successful redemption attaches the
// claimant's destination to the tenant policy, so subsequent alerts route to
// the secondary channel instead of the owner.
type Binder struct {
	handshake *Handshake
	policies  core.PolicyStore
	logger    *zap.Logger
}

// NewBinder creates a new pairing binder.
func NewBinder(handshake *Handshake, policies core.PolicyStore, logger *zap.Logger) *Binder {
	return &Binder{
		handshake: handshake,
		policies:  policies,
		logger:    logger,
	}
}

// Bind redeems the token and records destinationID as the tenant's alert
// destination. The token is consumed even when the policy update fails; the
// owner has to issue a fresh one.
func (b *Binder) Bind(ctx context.Context, token string, claimantID, destinationID int64, now time.Time) (int64, error) {
	tenantID, err := b.handshake.Redeem(token, claimantID, now)
	if err != nil {
		return 0, err
	}

	patch := core.PolicyPatch{SecondaryChannelID: &destinationID}
	if err := b.policies.UpdatePolicy(ctx, tenantID, patch); err != nil {
		return 0, err
	}

	b.logger.Info("Secondary destination bound",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("destination_id", destinationID))
	return tenantID, nil
}
