package pairing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/adapters/policystore"
	"github.com/despamly/despamly/internal/core"
)

func newBinderFixture(t *testing.T) (*Binder, *policystore.MemoryStore, *Handshake) {
	t.Helper()
	store := policystore.NewMemoryStore(zap.NewNop())
	require.NoError(t, store.Upsert(core.TenantPolicy{
		TenantID:        42,
		OwnerID:         7,
		Mode:            core.ModeDeleteOnly,
		DeleteThreshold: 0.85,
		KickThreshold:   0.95,
		IsActive:        true,
	}))
	handshake := newTestHandshake()
	return NewBinder(handshake, store, zap.NewNop()), store, handshake
}

func TestBindAttachesSecondaryDestination(t *testing.T) {
	binder, store, handshake := newBinderFixture(t)

	token, err := handshake.Issue(42, 7, t0)
	require.NoError(t, err)

	tenantID, err := binder.Bind(context.Background(), token.Token, 7, -100555, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(42), tenantID)

	policy, err := store.GetPolicy(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(-100555), policy.SecondaryChannelID)
	assert.Equal(t, int64(-100555), policy.AlertDestination())
}

func TestBindRejectsWrongClaimant(t *testing.T) {
	binder, store, handshake := newBinderFixture(t)

	token, err := handshake.Issue(42, 7, t0)
	require.NoError(t, err)

	_, err = binder.Bind(context.Background(), token.Token, 999, -100555, t0.Add(time.Minute))
	assert.ErrorIs(t, err, core.ErrTokenForbidden)

	policy, err := store.GetPolicy(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, policy.SecondaryChannelID)
}

func TestBindExpiredToken(t *testing.T) {
	binder, _, handshake := newBinderFixture(t)

	token, err := handshake.Issue(42, 7, t0)
	require.NoError(t, err)

	_, err = binder.Bind(context.Background(), token.Token, 7, -100555, token.ExpiresAt)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestBindConsumesTokenOnPolicyFailure(t *testing.T) {
	binder, _, handshake := newBinderFixture(t)

	// The tenant behind this token has no stored policy.
	token, err := handshake.Issue(77, 7, t0)
	require.NoError(t, err)

	_, err = binder.Bind(context.Background(), token.Token, 7, -100555, t0.Add(time.Minute))
	assert.ErrorIs(t, err, core.ErrPolicyMissing)

	_, err = binder.Bind(context.Background(), token.Token, 7, -100555, t0.Add(time.Minute))
	assert.ErrorIs(t, err, core.ErrTokenNotFound)
}
