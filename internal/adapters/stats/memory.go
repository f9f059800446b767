package stats

import (
	"context"
	"sync"
	"time"

	"github.com/despamly/despamly/internal/core"
)

type dayKey struct {
	tenantID int64
	day      string
}

// MemorySink accumulates per-tenant daily counters in memory. Serves local
// runs and tests; a persistent statistics store stays behind the port.
type MemorySink struct {
	mu       sync.Mutex
	counters map[dayKey]core.Counters
}

// NewMemorySink creates a new in-memory counter sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		counters: make(map[dayKey]core.Counters),
	}
}

// Increment adds a delta to the tenant's counters for the given day.
func (s *MemorySink) Increment(_ context.Context, tenantID int64, day time.Time, delta core.Counters) error {
	key := dayKey{tenantID: tenantID, day: day.Format("2006-01-02")}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.counters[key]
	current.Processed += delta.Processed
	current.SpamDetected += delta.SpamDetected
	current.Deleted += delta.Deleted
	current.Banned += delta.Banned
	s.counters[key] = current
	return nil
}

// Totals returns the accumulated counters for a tenant on a day.
func (s *MemorySink) Totals(tenantID int64, day time.Time) core.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[dayKey{tenantID: tenantID, day: day.Format("2006-01-02")}]
}
