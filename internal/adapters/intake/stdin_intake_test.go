package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/adapters/policystore"
	"github.com/despamly/despamly/internal/adapters/stats"
	"github.com/despamly/despamly/internal/adapters/transport"
	"github.com/despamly/despamly/internal/core"
	"github.com/despamly/despamly/internal/notify"
	"github.com/despamly/despamly/internal/ratelimit"
	"github.com/despamly/despamly/internal/utils"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type neutralEstimator struct{ name string }

func (e neutralEstimator) Name() string { return e.name }

func (e neutralEstimator) Score(_ context.Context, _ string, _ *core.MessageContext) (core.FilterScore, error) {
	return core.NeutralScore(e.name, ""), nil
}

func newIntakePipeline(t *testing.T, store core.PolicyStore) *core.ModerationPipeline {
	t.Helper()
	logger := zap.NewNop()
	loggingTransport := transport.NewLoggingTransport(logger)
	dispatcher := notify.NewDispatcher(notify.NewBuffer(notify.DefaultPolicy()), loggingTransport, logger)

	return core.NewModerationPipeline(core.PipelineParams{
		Keyword:     neutralEstimator{name: core.EstimatorKeyword},
		Statistical: neutralEstimator{name: core.EstimatorStatistical},
		Feature:     neutralEstimator{name: core.EstimatorFeature},
		Aggregator:  core.NewScoreAggregator(),
		Engine:      core.NewPolicyEngine(logger),
		Limiter:     ratelimit.NewLimiter(ratelimit.DefaultLimits(), logger),
		Policies:    store,
		Counters:    stats.NewMemorySink(),
		Transport:   loggingTransport,
		Alerts:      dispatcher,
		Normalizer:  utils.NewTextProcessor(4096, logger),
		Logger:      logger,
	})
}

func TestIntakeEmitsOneVerdictPerMessage(t *testing.T) {
	store := policystore.NewMemoryStore(zap.NewNop())
	pipeline := newIntakePipeline(t, store)

	input := strings.Join([]string{
		`{"message_id": 1, "tenant_id": 42, "sender_id": 100, "sender_name": "alice", "text": "hello"}`,
		`this is not json`,
		`{"message_id": 2, "tenant_id": 42, "sender_id": 100, "sender_name": "alice", "text": "hello again"}`,
	}, "\n") + "\n"

	out := &syncBuffer{}
	s := NewStreamIntake(pipeline, 2, zap.NewNop(), strings.NewReader(input), out)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") == 2
	}, 2*time.Second, 10*time.Millisecond, "expected two verdict lines, malformed input skipped")
	require.NoError(t, s.Stop())

	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var verdict verdictLine
		require.NoError(t, json.Unmarshal([]byte(line), &verdict))
		assert.Equal(t, int64(42), verdict.TenantID)
		// Unregistered tenants are approved.
		assert.Equal(t, "approve", verdict.Verdict)
		assert.Empty(t, verdict.Error)
	}
}

func TestIntakeAppliesTenantPolicy(t *testing.T) {
	store := policystore.NewMemoryStore(zap.NewNop())
	require.NoError(t, store.Upsert(core.TenantPolicy{
		TenantID:        42,
		OwnerID:         7,
		Mode:            core.ModeDeleteOnly,
		DeleteThreshold: 0.4,
		KickThreshold:   0.9,
		IsActive:        true,
	}))
	pipeline := newIntakePipeline(t, store)

	// All estimators are neutral, so the governing score is the weighted
	// blend 0.5, above this tenant's delete threshold.
	input := `{"message_id": 1, "tenant_id": 42, "sender_id": 100, "sender_name": "bob", "text": "hello"}` + "\n"

	out := &syncBuffer{}
	s := NewStreamIntake(pipeline, 1, zap.NewNop(), strings.NewReader(input), out)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "\n")
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())

	var verdict verdictLine
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &verdict))
	assert.Equal(t, "delete", verdict.Verdict)
}
