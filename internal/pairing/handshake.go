package pairing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

const (
	// tokenBytes gives 96 bits of entropy, URL-safe encoded.
	tokenBytes = 12
	// DefaultTTL is how long an issued token stays redeemable.
	DefaultTTL = 15 * time.Minute
)

// Handshake issues and redeems short-lived capability tokens binding an
// owner to a secondary moderator destination. Tokens are single-use and
// process-local; this is an entropy-sized capability token, not a
// cryptographic protocol — claimant identity comes from the transport layer.
type Handshake struct {
	mu     sync.Mutex
	tokens map[string]core.PairingToken
	ttl    time.Duration
	logger *zap.Logger
}

// NewHandshake creates a new pairing handshake with the given token TTL.
func NewHandshake(ttl time.Duration, logger *zap.Logger) *Handshake {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Handshake{
		tokens: make(map[string]core.PairingToken),
		ttl:    ttl,
		logger: logger,
	}
}

// Issue generates a fresh token bound to (tenant, owner). Earlier unredeemed
// tokens for the same tenant stay valid until they expire on their own;
// issuing is O(1) and never cross-checks prior issuances.
func (h *Handshake) Issue(tenantID, ownerID int64, now time.Time) (core.PairingToken, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return core.PairingToken{}, fmt.Errorf("failed to generate pairing token: %w", err)
	}

	token := core.PairingToken{
		Token:     base64.RawURLEncoding.EncodeToString(raw),
		TenantID:  tenantID,
		OwnerID:   ownerID,
		IssuedAt:  now,
		ExpiresAt: now.Add(h.ttl),
	}

	h.mu.Lock()
	h.purgeExpired(now)
	h.tokens[token.Token] = token
	h.mu.Unlock()

	h.logger.Info("Issued pairing token",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("owner_id", ownerID),
		zap.Time("expires_at", token.ExpiresAt))
	return token, nil
}

// Redeem consumes a token and returns the tenant it was bound to. It fails
// with ErrTokenNotFound for unknown (or already used) tokens, ErrTokenExpired
// once the lifetime has elapsed (the expiry instant itself counts as expired,
// and the token is deleted), and ErrTokenForbidden when the claimant is not
// the issuing owner (the token survives for the rightful owner).
func (h *Handshake) Redeem(token string, claimantID int64, now time.Time) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bound, ok := h.tokens[token]
	if !ok {
		return 0, core.ErrTokenNotFound
	}
	if !now.Before(bound.ExpiresAt) {
		delete(h.tokens, token)
		return 0, core.ErrTokenExpired
	}
	if claimantID != bound.OwnerID {
		h.logger.Warn("Pairing token redeemed by wrong owner",
			zap.Int64("owner_id", bound.OwnerID),
			zap.Int64("claimant_id", claimantID))
		return 0, core.ErrTokenForbidden
	}

	delete(h.tokens, token)
	h.logger.Info("Pairing token redeemed",
		zap.Int64("tenant_id", bound.TenantID),
		zap.Int64("owner_id", bound.OwnerID))
	return bound.TenantID, nil
}

// Live reports how many tokens are currently stored. For diagnostics.
func (h *Handshake) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tokens)
}

// purgeExpired drops dead tokens opportunistically on issue. Called with the
// lock held.
func (h *Handshake) purgeExpired(now time.Time) {
	for key, token := range h.tokens {
		if !now.Before(token.ExpiresAt) {
			delete(h.tokens, key)
		}
	}
}
