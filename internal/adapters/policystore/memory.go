package policystore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

// MemoryStore is an in-memory implementation of the PolicyStore port. The
// persistent configuration store lives outside this engine; this adapter
// serves local runs and tests.
type MemoryStore struct {
	policies map[int64]core.TenantPolicy
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory policy store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		policies: make(map[int64]core.TenantPolicy),
		logger:   logger,
	}
}

// GetPolicy retrieves the policy for a tenant.
func (s *MemoryStore) GetPolicy(_ context.Context, tenantID int64) (*core.TenantPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[tenantID]
	if !ok {
		return nil, core.ErrPolicyMissing
	}
	// Copy out so callers never share the stored slice.
	policy.Whitelist = append([]string(nil), policy.Whitelist...)
	return &policy, nil
}

// UpdatePolicy applies a partial update and re-validates the thresholds.
func (s *MemoryStore) UpdatePolicy(_ context.Context, tenantID int64, patch core.PolicyPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy, ok := s.policies[tenantID]
	if !ok {
		return core.ErrPolicyMissing
	}

	if patch.Mode != nil {
		policy.Mode = *patch.Mode
	}
	if patch.DeleteThreshold != nil {
		policy.DeleteThreshold = *patch.DeleteThreshold
	}
	if patch.KickThreshold != nil {
		policy.KickThreshold = *patch.KickThreshold
	}
	if patch.IsActive != nil {
		policy.IsActive = *patch.IsActive
	}
	if patch.Whitelist != nil {
		policy.Whitelist = append([]string(nil), (*patch.Whitelist)...)
	}
	if patch.SecondaryChannelID != nil {
		policy.SecondaryChannelID = *patch.SecondaryChannelID
	}

	if err := policy.Validate(); err != nil {
		return fmt.Errorf("rejecting policy update for tenant %d: %w", tenantID, err)
	}

	s.policies[tenantID] = policy
	s.logger.Info("Tenant policy updated",
		zap.Int64("tenant_id", tenantID),
		zap.String("mode", policy.Mode.String()),
		zap.Bool("active", policy.IsActive))
	return nil
}

// Upsert stores a full policy, validating it first. Used at bootstrap and by
// the pairing flow when it attaches a secondary destination.
func (s *MemoryStore) Upsert(policy core.TenantPolicy) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("rejecting policy for tenant %d: %w", policy.TenantID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	policy.Whitelist = append([]string(nil), policy.Whitelist...)
	s.policies[policy.TenantID] = policy
	return nil
}
