package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/despamly/despamly/internal/core"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func alertNamed(sender string) core.PendingAlert {
	return core.PendingAlert{
		TenantID:   42,
		SenderName: sender,
		Text:       "buy now",
		Score:      0.9,
		Verdict:    core.VerdictDelete,
	}
}

func TestBatchTriggerAtThreshold(t *testing.T) {
	b := NewBuffer(DefaultPolicy())

	for i := 0; i < 9; i++ {
		b.Enqueue(7, alertNamed("spammer"))
	}
	assert.False(t, b.ShouldFlushBatch(7))

	b.Enqueue(7, alertNamed("spammer"))
	assert.True(t, b.ShouldFlushBatch(7))
}

func TestDrainReturnsEnqueueOrderAndEmpties(t *testing.T) {
	b := NewBuffer(DefaultPolicy())

	b.Enqueue(7, alertNamed("first"))
	b.Enqueue(7, alertNamed("second"))
	b.Enqueue(7, alertNamed("third"))

	drained := b.Drain(7)
	assert.Len(t, drained, 3)
	assert.Equal(t, "first", drained[0].SenderName)
	assert.Equal(t, "second", drained[1].SenderName)
	assert.Equal(t, "third", drained[2].SenderName)

	assert.Empty(t, b.Drain(7))
	assert.Zero(t, b.PendingCount(7))
}

func TestEnqueueAfterDrainStartsNextBatch(t *testing.T) {
	b := NewBuffer(DefaultPolicy())

	b.Enqueue(7, alertNamed("first"))
	b.Drain(7)
	b.Enqueue(7, alertNamed("second"))

	assert.Equal(t, 1, b.PendingCount(7))
}

func TestDestinationsAreIsolated(t *testing.T) {
	b := NewBuffer(DefaultPolicy())

	b.Enqueue(7, alertNamed("a"))
	b.Enqueue(8, alertNamed("b"))

	assert.Equal(t, 1, b.PendingCount(7))
	assert.Equal(t, 1, b.PendingCount(8))
	b.Drain(7)
	assert.Equal(t, 1, b.PendingCount(8))
}

func TestIndividualQuietPeriod(t *testing.T) {
	now := t0
	b := NewBuffer(DefaultPolicy()).WithClock(func() time.Time { return now })

	// No recorded flush yet: eligible immediately.
	assert.True(t, b.ShouldFlushIndividual(7))

	b.MarkFlushed(7, now)
	assert.False(t, b.ShouldFlushIndividual(7))

	now = t0.Add(4 * time.Minute)
	assert.False(t, b.ShouldFlushIndividual(7))

	// The interval boundary itself is eligible.
	now = t0.Add(5 * time.Minute)
	assert.True(t, b.ShouldFlushIndividual(7))
}
