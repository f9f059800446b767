package pairing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestHandshake() *Handshake {
	return NewHandshake(DefaultTTL, zap.NewNop())
}

func TestIssueAndRedeemRoundtrip(t *testing.T) {
	h := newTestHandshake()

	token, err := h.Issue(42, 7, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), token.TenantID)
	assert.Equal(t, t0.Add(DefaultTTL), token.ExpiresAt)

	tenantID, err := h.Redeem(token.Token, 7, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(42), tenantID)
	assert.Zero(t, h.Live())
}

func TestTokenFormat(t *testing.T) {
	h := newTestHandshake()

	first, err := h.Issue(42, 7, t0)
	require.NoError(t, err)
	second, err := h.Issue(42, 7, t0)
	require.NoError(t, err)

	// 12 random bytes, URL-safe encoded without padding.
	assert.Len(t, first.Token, 16)
	assert.NotContains(t, first.Token, "=")
	assert.NotEqual(t, first.Token, second.Token)
}

func TestRedeemUnknownToken(t *testing.T) {
	h := newTestHandshake()

	_, err := h.Redeem("no-such-token", 7, t0)
	assert.ErrorIs(t, err, core.ErrTokenNotFound)
}

func TestRedeemIsSingleUse(t *testing.T) {
	h := newTestHandshake()

	token, err := h.Issue(42, 7, t0)
	require.NoError(t, err)

	_, err = h.Redeem(token.Token, 7, t0.Add(time.Minute))
	require.NoError(t, err)

	_, err = h.Redeem(token.Token, 7, t0.Add(time.Minute))
	assert.ErrorIs(t, err, core.ErrTokenNotFound)
}

func TestRedeemAtExpiryInstantFails(t *testing.T) {
	h := newTestHandshake()

	token, err := h.Issue(42, 7, t0)
	require.NoError(t, err)

	_, err = h.Redeem(token.Token, 7, token.ExpiresAt)
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	// Expiry destroys the token; a later attempt no longer finds it.
	_, err = h.Redeem(token.Token, 7, token.ExpiresAt)
	assert.ErrorIs(t, err, core.ErrTokenNotFound)
}

func TestRedeemJustBeforeExpirySucceeds(t *testing.T) {
	h := newTestHandshake()

	token, err := h.Issue(42, 7, t0)
	require.NoError(t, err)

	tenantID, err := h.Redeem(token.Token, 7, token.ExpiresAt.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(42), tenantID)
}

func TestRedeemByWrongClaimantKeepsToken(t *testing.T) {
	h := newTestHandshake()

	token, err := h.Issue(42, 7, t0)
	require.NoError(t, err)

	_, err = h.Redeem(token.Token, 999, t0.Add(time.Minute))
	assert.ErrorIs(t, err, core.ErrTokenForbidden)

	// The rightful owner can still redeem it.
	tenantID, err := h.Redeem(token.Token, 7, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(42), tenantID)
}

func TestMultipleLiveTokensPerTenant(t *testing.T) {
	h := newTestHandshake()

	first, err := h.Issue(42, 7, t0)
	require.NoError(t, err)
	second, err := h.Issue(42, 7, t0)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Live())

	_, err = h.Redeem(first.Token, 7, t0.Add(time.Minute))
	require.NoError(t, err)
	_, err = h.Redeem(second.Token, 7, t0.Add(time.Minute))
	require.NoError(t, err)
}

func TestIssuePurgesExpiredTokens(t *testing.T) {
	h := newTestHandshake()

	_, err := h.Issue(42, 7, t0)
	require.NoError(t, err)

	// Issuing past the first token's lifetime sweeps it out.
	_, err = h.Issue(43, 8, t0.Add(DefaultTTL+time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, h.Live())
}
