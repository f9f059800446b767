package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limits configures the sliding-window thresholds.
type Limits struct {
	// PerBurst is the number of events tolerated within BurstWindow.
	PerBurst int
	// PerWindow is the number of events tolerated within Window.
	PerWindow int
	// BurstWindow is the short burst interval.
	BurstWindow time.Duration
	// Window is the trailing retention interval.
	Window time.Duration
	// SweepInterval bounds how often fully expired keys are purged.
	SweepInterval time.Duration
}

// DefaultLimits matches the deployed flood thresholds: 3 per second,
// 10 per minute.
func DefaultLimits() Limits {
	return Limits{
		PerBurst:      3,
		PerWindow:     10,
		BurstWindow:   time.Second,
		Window:        time.Minute,
		SweepInterval: time.Minute,
	}
}

type key struct {
	tenantID int64
	senderID int64
}

// Limiter is a per-(tenant, sender) sliding-window flood detector. It is
// process-local and resets on restart: a flood window is short-lived, so a
// restart affects at most one window. A flagged event is never retained, so
// a single burst cannot grow the window unboundedly.
type Limiter struct {
	mu        sync.Mutex
	windows   map[key][]time.Time
	limits    Limits
	lastSweep time.Time
	logger    *zap.Logger
}

// NewLimiter creates a new flood detector.
func NewLimiter(limits Limits, logger *zap.Logger) *Limiter {
	return &Limiter{
		windows: make(map[key][]time.Time),
		limits:  limits,
		logger:  logger,
	}
}

// RecordAndCheck evaluates one event against both thresholds. It returns
// true when the event is flood (and does not record it); otherwise it records
// the event and returns false.
func (l *Limiter) RecordAndCheck(tenantID, senderID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.limits.SweepInterval {
		l.sweep(now)
		l.lastSweep = now
	}

	k := key{tenantID: tenantID, senderID: senderID}
	retained := pruneBefore(l.windows[k], now.Add(-l.limits.Window))
	l.windows[k] = retained

	burst := 0
	burstCutoff := now.Add(-l.limits.BurstWindow)
	for _, ts := range retained {
		if ts.After(burstCutoff) {
			burst++
		}
	}

	if burst >= l.limits.PerBurst {
		l.logger.Warn("Flood threshold exceeded in burst window",
			zap.Int64("tenant_id", tenantID),
			zap.Int64("sender_id", senderID),
			zap.Int("count", burst))
		return true
	}
	if len(retained) >= l.limits.PerWindow {
		l.logger.Warn("Flood threshold exceeded in trailing window",
			zap.Int64("tenant_id", tenantID),
			zap.Int64("sender_id", senderID),
			zap.Int("count", len(retained)))
		return true
	}

	l.windows[k] = append(retained, now)
	return false
}

// ActiveSenders reports how many keys currently retain events. For
// diagnostics.
func (l *Limiter) ActiveSenders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// sweep drops keys whose window has fully expired, bounding memory to active
// senders. Called with the lock held.
func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-l.limits.Window)
	removed := 0
	for k, timestamps := range l.windows {
		retained := pruneBefore(timestamps, cutoff)
		if len(retained) == 0 {
			delete(l.windows, k)
			removed++
			continue
		}
		l.windows[k] = retained
	}
	if removed > 0 {
		l.logger.Debug("Swept inactive rate limit keys", zap.Int("removed", removed))
	}
}

// pruneBefore drops timestamps at or before the cutoff, preserving order.
func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(timestamps) && !timestamps[idx].After(cutoff) {
		idx++
	}
	return timestamps[idx:]
}
