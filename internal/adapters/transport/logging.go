package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

// LoggingTransport implements the Transport port by logging every action.
// The real chat platform binding is supplied by the embedding application;
// this adapter makes the engine runnable (and observable) without one.
type LoggingTransport struct {
	logger *zap.Logger
}

// NewLoggingTransport creates a new log-only transport.
func NewLoggingTransport(logger *zap.Logger) *LoggingTransport {
	return &LoggingTransport{logger: logger}
}

// DeleteMessage logs a message deletion request.
func (t *LoggingTransport) DeleteMessage(_ context.Context, tenantID, messageID int64) error {
	t.logger.Info("transport: delete message",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("message_id", messageID))
	return nil
}

// Ban logs a ban request.
func (t *LoggingTransport) Ban(_ context.Context, tenantID, senderID int64) error {
	t.logger.Info("transport: ban sender",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("sender_id", senderID))
	return nil
}

// Unban logs an unban request.
func (t *LoggingTransport) Unban(_ context.Context, tenantID, senderID int64) error {
	t.logger.Info("transport: unban sender",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("sender_id", senderID))
	return nil
}

// SendAlert logs an outgoing owner alert.
func (t *LoggingTransport) SendAlert(_ context.Context, destination int64, payload core.AlertPayload) error {
	kind := "individual"
	if payload.Kind == core.AlertDigest {
		kind = "digest"
	}
	t.logger.Info("transport: send alert",
		zap.Int64("destination", destination),
		zap.String("kind", kind),
		zap.Int("alerts", len(payload.Alerts)))
	return nil
}
