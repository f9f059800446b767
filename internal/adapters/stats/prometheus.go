package stats

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

// PromSink exports the moderation counters as Prometheus metrics, optionally
// serving them over HTTP. Daily bucketing is left to the scrape timeline.
type PromSink struct {
	processed    *prometheus.CounterVec
	spamDetected *prometheus.CounterVec
	deleted      *prometheus.CounterVec
	banned       *prometheus.CounterVec

	server *http.Server
	logger *zap.Logger
}

// NewPromSink creates a Prometheus counter sink registered on the default
// registry. listenAddr may be empty to skip the /metrics listener.
func NewPromSink(listenAddr string, logger *zap.Logger) *PromSink {
	labels := []string{"tenant_id"}
	sink := &PromSink{
		processed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "despamly_messages_processed_total",
			Help: "Messages run through the moderation pipeline.",
		}, labels),
		spamDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "despamly_spam_detected_total",
			Help: "Messages the ensemble flagged as spam.",
		}, labels),
		deleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "despamly_messages_deleted_total",
			Help: "Messages successfully deleted from the chat.",
		}, labels),
		banned: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "despamly_senders_banned_total",
			Help: "Senders soft-banned after a kick verdict.",
		}, labels),
		logger: logger,
	}

	if listenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		sink.server = &http.Server{Addr: listenAddr, Handler: mux}
		go func() {
			logger.Info("Serving metrics", zap.String("addr", listenAddr))
			if err := sink.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener failed", zap.Error(err))
			}
		}()
	}

	return sink
}

// Increment implements core.CounterSink.
func (s *PromSink) Increment(_ context.Context, tenantID int64, _ time.Time, delta core.Counters) error {
	tenant := strconv.FormatInt(tenantID, 10)
	if delta.Processed > 0 {
		s.processed.WithLabelValues(tenant).Add(float64(delta.Processed))
	}
	if delta.SpamDetected > 0 {
		s.spamDetected.WithLabelValues(tenant).Add(float64(delta.SpamDetected))
	}
	if delta.Deleted > 0 {
		s.deleted.WithLabelValues(tenant).Add(float64(delta.Deleted))
	}
	if delta.Banned > 0 {
		s.banned.WithLabelValues(tenant).Add(float64(delta.Banned))
	}
	return nil
}

// Stop shuts the metrics listener down.
func (s *PromSink) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to stop metrics listener", zap.Error(err))
		}
	}
}
