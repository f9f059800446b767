package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

type sentAlert struct {
	destination int64
	payload     core.AlertPayload
}

type fakeAlertTransport struct {
	sent []sentAlert
	fail error
}

func (t *fakeAlertTransport) DeleteMessage(_ context.Context, _, _ int64) error { return nil }
func (t *fakeAlertTransport) Ban(_ context.Context, _, _ int64) error           { return nil }
func (t *fakeAlertTransport) Unban(_ context.Context, _, _ int64) error         { return nil }

func (t *fakeAlertTransport) SendAlert(_ context.Context, destination int64, payload core.AlertPayload) error {
	if t.fail != nil {
		return t.fail
	}
	t.sent = append(t.sent, sentAlert{destination: destination, payload: payload})
	return nil
}

func newDispatcherFixture(clock func() time.Time) (*Dispatcher, *Buffer, *fakeAlertTransport) {
	buffer := NewBuffer(DefaultPolicy()).WithClock(clock)
	transport := &fakeAlertTransport{}
	dispatcher := NewDispatcher(buffer, transport, zap.NewNop()).WithClock(clock)
	return dispatcher, buffer, transport
}

func TestPublishDeliversIndividualWhenQuiet(t *testing.T) {
	now := t0
	dispatcher, buffer, transport := newDispatcherFixture(func() time.Time { return now })

	err := dispatcher.Publish(context.Background(), 7, alertNamed("spammer"))

	require.NoError(t, err)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, int64(7), transport.sent[0].destination)
	assert.Equal(t, core.AlertIndividual, transport.sent[0].payload.Kind)
	assert.Contains(t, transport.sent[0].payload.Text, "spammer")
	assert.Zero(t, buffer.PendingCount(7))
}

func TestPublishBuffersDuringQuietPeriod(t *testing.T) {
	now := t0
	dispatcher, buffer, transport := newDispatcherFixture(func() time.Time { return now })

	require.NoError(t, dispatcher.Publish(context.Background(), 7, alertNamed("first")))
	now = now.Add(time.Minute)
	require.NoError(t, dispatcher.Publish(context.Background(), 7, alertNamed("second")))

	// The second alert falls inside the quiet period and stays buffered.
	assert.Len(t, transport.sent, 1)
	assert.Equal(t, 1, buffer.PendingCount(7))
}

func TestPublishSendsDigestAtBatchThreshold(t *testing.T) {
	now := t0
	dispatcher, buffer, transport := newDispatcherFixture(func() time.Time { return now })
	// Suppress the individual path so alerts accumulate.
	buffer.MarkFlushed(7, now)

	for i := 0; i < 10; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), 7, alertNamed(fmt.Sprintf("sender-%d", i))))
	}

	require.Len(t, transport.sent, 1)
	payload := transport.sent[0].payload
	assert.Equal(t, core.AlertDigest, payload.Kind)
	assert.Len(t, payload.Alerts, 10)
	assert.Contains(t, payload.Text, "10 spam detections")
	assert.Zero(t, buffer.PendingCount(7))
}

func TestPublishReturnsTransportError(t *testing.T) {
	now := t0
	dispatcher, buffer, transport := newDispatcherFixture(func() time.Time { return now })
	transport.fail = errors.New("destination unreachable")

	err := dispatcher.Publish(context.Background(), 7, alertNamed("spammer"))

	assert.Error(t, err)
	// A failed delivery does not start a quiet period.
	assert.True(t, buffer.ShouldFlushIndividual(7))
}

func TestFormatIndividual(t *testing.T) {
	alert := core.PendingAlert{
		TenantID:   42,
		SenderID:   555,
		SenderName: "spammer",
		Text:       "join now casino\nsecond line",
		Score:      0.93,
		Verdict:    core.VerdictDelete,
	}

	text := FormatIndividual(alert)
	assert.Contains(t, text, "tenant 42")
	assert.Contains(t, text, "spammer (ID 555)")
	assert.Contains(t, text, "93.0%")
	assert.Contains(t, text, "Action: delete")
	assert.Contains(t, text, "join now casino")
}

func TestFormatIndividualTruncatesLongText(t *testing.T) {
	alert := alertNamed("spammer")
	alert.Text = strings.Repeat("x", 500)

	text := FormatIndividual(alert)
	assert.Contains(t, text, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, text, strings.Repeat("x", 201))
}

func TestFormatDigestListsEachDetection(t *testing.T) {
	alerts := []core.PendingAlert{
		{SenderName: "alice", Score: 0.9, Verdict: core.VerdictDelete, Text: "first"},
		{SenderName: "bob", Score: 0.97, Verdict: core.VerdictKick, Text: "second"},
	}

	text := FormatDigest(alerts)
	assert.Contains(t, text, "2 spam detections")
	assert.Contains(t, text, "alice")
	assert.Contains(t, text, "bob")
	assert.Contains(t, text, "kick")
}
