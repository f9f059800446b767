package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

const previewRunes = 200

// Dispatcher implements core.AlertPublisher on top of the buffer. Each
// publish enqueues the alert and then picks the delivery shape: a digest once
// the batch threshold is reached, an individual detailed alert when the quiet
// period allows one, otherwise the alert stays buffered for a later trigger.
type Dispatcher struct {
	buffer    *Buffer
	transport core.Transport
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher creates a new alert dispatcher.
func NewDispatcher(buffer *Buffer, transport core.Transport, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		buffer:    buffer,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the dispatcher's clock. For tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Publish buffers one alert and flushes when a trigger fires. A transport
// send failure is logged and returned; the drained alerts are not requeued.
func (d *Dispatcher) Publish(ctx context.Context, destination int64, alert core.PendingAlert) error {
	d.buffer.Enqueue(destination, alert)

	switch {
	case d.buffer.ShouldFlushBatch(destination):
		alerts := d.buffer.Drain(destination)
		payload := core.AlertPayload{
			Kind:   core.AlertDigest,
			Text:   FormatDigest(alerts),
			Alerts: alerts,
		}
		return d.send(ctx, destination, payload, len(alerts))

	case d.buffer.ShouldFlushIndividual(destination):
		alerts := d.buffer.Drain(destination)
		payload := core.AlertPayload{
			Kind:   core.AlertIndividual,
			Text:   FormatIndividual(alerts[len(alerts)-1]),
			Alerts: alerts,
		}
		return d.send(ctx, destination, payload, len(alerts))
	}

	d.logger.Debug("Alert buffered",
		zap.Int64("destination", destination),
		zap.Int("pending", d.buffer.PendingCount(destination)))
	return nil
}

func (d *Dispatcher) send(ctx context.Context, destination int64, payload core.AlertPayload, count int) error {
	if err := d.transport.SendAlert(ctx, destination, payload); err != nil {
		d.logger.Error("Failed to send alert",
			zap.Int64("destination", destination),
			zap.Int("alerts", count),
			zap.Error(err))
		return err
	}
	d.buffer.MarkFlushed(destination, d.now())
	d.logger.Info("Alert delivered",
		zap.Int64("destination", destination),
		zap.Int("alerts", count))
	return nil
}

// FormatIndividual renders one detection as a detailed alert message.
func FormatIndividual(alert core.PendingAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Spam detected in tenant %d\n", alert.TenantID)
	fmt.Fprintf(&b, "Sender: %s (ID %d)\n", alert.SenderName, alert.SenderID)
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", alert.Score*100)
	fmt.Fprintf(&b, "Action: %s\n\n", alert.Verdict)
	b.WriteString(preview(alert.Text))
	return b.String()
}

// FormatDigest renders a group of detections as one summary message.
func FormatDigest(alerts []core.PendingAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d spam detections\n", len(alerts))
	for _, alert := range alerts {
		fmt.Fprintf(&b, "- %s (%.0f%%, %s): %s\n",
			alert.SenderName, alert.Score*100, alert.Verdict, firstLine(alert.Text, 60))
	}
	return b.String()
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}

func firstLine(text string, limit int) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}
