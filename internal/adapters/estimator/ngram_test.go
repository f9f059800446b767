package estimator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

func writeNgramModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ngram.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNgramWithoutModelIsDegraded(t *testing.T) {
	e := NewNgramEstimator("", zap.NewNop())
	assert.False(t, e.Ready())

	score, err := e.Score(context.Background(), "casino jackpot", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, score.Probability)
	assert.True(t, score.Degraded())
}

func TestNgramUnreadableModelIsDegraded(t *testing.T) {
	e := NewNgramEstimator("/nonexistent/ngram.json", zap.NewNop())
	assert.False(t, e.Ready())
}

func TestNgramRejectsInvalidRange(t *testing.T) {
	path := writeNgramModel(t, `{"min_n": 3, "max_n": 2, "bias": 0, "weights": {}}`)

	e := NewNgramEstimator(path, zap.NewNop())
	assert.False(t, e.Ready())
}

func TestNgramScoresLoadedModel(t *testing.T) {
	path := writeNgramModel(t, `{
		"min_n": 3,
		"max_n": 3,
		"bias": -1.0,
		"weights": {"cas": 2.0, "ino": 2.0}
	}`)

	e := NewNgramEstimator(path, zap.NewNop())
	require.True(t, e.Ready())

	spam, err := e.Score(context.Background(), "casino", nil)
	require.NoError(t, err)
	// bias -1.0 plus two matched trigrams at 2.0 each.
	assert.Greater(t, spam.Probability, 0.9)
	assert.Equal(t, "2", spam.Details["ngram_hits"])

	clean, err := e.Score(context.Background(), "see you tomorrow", nil)
	require.NoError(t, err)
	assert.Less(t, clean.Probability, 0.5)
	assert.Equal(t, "0", clean.Details["ngram_hits"])
}

func TestNgramMatchingIsCaseInsensitive(t *testing.T) {
	path := writeNgramModel(t, `{
		"min_n": 3,
		"max_n": 3,
		"bias": 0,
		"weights": {"cas": 1.0}
	}`)

	e := NewNgramEstimator(path, zap.NewNop())

	upper, err := e.Score(context.Background(), "CASINO", nil)
	require.NoError(t, err)
	assert.Equal(t, "1", upper.Details["ngram_hits"])
}

func TestNgramNameMatchesSlot(t *testing.T) {
	e := NewNgramEstimator("", zap.NewNop())
	assert.Equal(t, core.EstimatorStatistical, e.Name())
}
