package notify

import (
	"sync"
	"time"

	"github.com/despamly/despamly/internal/core"
)

// Policy configures the batching behavior of the alert buffer.
type Policy struct {
	// BatchThreshold is the pending-alert count that triggers a digest.
	BatchThreshold int
	// IndividualInterval is the minimum quiet time between individual
	// deliveries to the same destination.
	IndividualInterval time.Duration
}

// DefaultPolicy matches the deployed batching behavior: digest at 10 pending
// alerts, one individual delivery per 5 minutes.
func DefaultPolicy() Policy {
	return Policy{
		BatchThreshold:     10,
		IndividualInterval: 5 * time.Minute,
	}
}

// Buffer accumulates pending alerts per destination so a spam wave does not
// flood the channel operator. Drain is the single point of truth for what is
// pending: it empties the destination's buffer atomically, and an enqueue
// racing a drain simply starts the next batch.
type Buffer struct {
	mu        sync.Mutex
	pending   map[int64][]core.PendingAlert
	lastFlush map[int64]time.Time
	policy    Policy
	now       func() time.Time
}

// NewBuffer creates a new alert buffer.
func NewBuffer(policy Policy) *Buffer {
	return &Buffer{
		pending:   make(map[int64][]core.PendingAlert),
		lastFlush: make(map[int64]time.Time),
		policy:    policy,
		now:       time.Now,
	}
}

// WithClock overrides the buffer's clock. For tests.
func (b *Buffer) WithClock(now func() time.Time) *Buffer {
	b.now = now
	return b
}

// Enqueue appends an alert to the destination's buffer.
func (b *Buffer) Enqueue(destination int64, alert core.PendingAlert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[destination] = append(b.pending[destination], alert)
}

// ShouldFlushBatch reports whether enough alerts are pending for a digest,
// regardless of elapsed time.
func (b *Buffer) ShouldFlushBatch(destination int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[destination]) >= b.policy.BatchThreshold
}

// ShouldFlushIndividual reports whether the quiet period since the last
// flush has elapsed. A destination with no recorded flush is eligible
// immediately.
func (b *Buffer) ShouldFlushIndividual(destination int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Sub(b.lastFlush[destination]) >= b.policy.IndividualInterval
}

// Drain returns all pending alerts for a destination in enqueue order and
// empties the buffer. Alerts enqueued after the drain are never lost; they
// become the start of the next batch.
func (b *Buffer) Drain(destination int64) []core.PendingAlert {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.pending[destination]
	delete(b.pending, destination)
	return drained
}

// MarkFlushed records a delivery time for the individual-interval check.
func (b *Buffer) MarkFlushed(destination int64, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFlush[destination] = at
}

// PendingCount reports how many alerts are buffered for a destination.
func (b *Buffer) PendingCount(destination int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[destination])
}
