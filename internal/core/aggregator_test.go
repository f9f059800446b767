package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func score(estimator string, probability, confidence float64) FilterScore {
	return FilterScore{
		Estimator:   estimator,
		Probability: probability,
		Confidence:  confidence,
	}
}

func TestAggregateNormalizesEstimatorSlots(t *testing.T) {
	agg := NewScoreAggregator()

	result := agg.Aggregate(
		score("something-else", 0.1, 1.0),
		score("", 0.2, 1.0),
		score("bogus", 0.3, 1.0),
		nil,
	)

	assert.Equal(t, EstimatorKeyword, result.Keyword.Estimator)
	assert.Equal(t, EstimatorStatistical, result.Statistical.Estimator)
	assert.Equal(t, EstimatorFeature, result.FeatureBased.Estimator)

	scores := result.Scores()
	assert.Len(t, scores, 3)
	assert.Equal(t, EstimatorKeyword, scores[0].Estimator)
	assert.Equal(t, EstimatorStatistical, scores[1].Estimator)
	assert.Equal(t, EstimatorFeature, scores[2].Estimator)
}

func TestAggregateClampsOutOfRangeScores(t *testing.T) {
	agg := NewScoreAggregator()

	result := agg.Aggregate(
		score(EstimatorKeyword, -0.3, -1.0),
		score(EstimatorStatistical, 1.7, 2.0),
		score(EstimatorFeature, 0.5, 0.5),
		nil,
	)

	assert.Equal(t, 0.0, result.Keyword.Probability)
	assert.Equal(t, 0.0, result.Keyword.Confidence)
	assert.Equal(t, 1.0, result.Statistical.Probability)
	assert.Equal(t, 1.0, result.Statistical.Confidence)
	assert.Equal(t, 0.5, result.FeatureBased.Probability)
}

func TestWeightedScoreBlendsWithFixedWeights(t *testing.T) {
	agg := NewScoreAggregator()

	result := agg.Aggregate(
		score(EstimatorKeyword, 0.5, 1.0),
		score(EstimatorStatistical, 0.8, 1.0),
		score(EstimatorFeature, 0.9, 1.0),
		nil,
	)

	// 0.5*0.20 + 0.8*0.40 + 0.9*0.40
	assert.InDelta(t, 0.78, result.WeightedScore(), 1e-9)
}

func TestWeightedScoreStaysInUnitInterval(t *testing.T) {
	agg := NewScoreAggregator()

	zero := agg.Aggregate(
		score(EstimatorKeyword, 0, 1), score(EstimatorStatistical, 0, 1), score(EstimatorFeature, 0, 1), nil)
	one := agg.Aggregate(
		score(EstimatorKeyword, 1, 1), score(EstimatorStatistical, 1, 1), score(EstimatorFeature, 1, 1), nil)

	assert.Equal(t, 0.0, zero.WeightedScore())
	assert.InDelta(t, 1.0, one.WeightedScore(), 1e-9)
}

func TestMaxScore(t *testing.T) {
	agg := NewScoreAggregator()

	result := agg.Aggregate(
		score(EstimatorKeyword, 0.2, 1.0),
		score(EstimatorStatistical, 0.9, 1.0),
		score(EstimatorFeature, 0.4, 1.0),
		nil,
	)

	assert.Equal(t, 0.9, result.MaxScore())
}

func TestAllHighBoundary(t *testing.T) {
	agg := NewScoreAggregator()

	atBar := agg.Aggregate(
		score(EstimatorKeyword, 0.70, 1.0),
		score(EstimatorStatistical, 0.70, 1.0),
		score(EstimatorFeature, 0.70, 1.0),
		nil,
	)
	assert.True(t, atBar.AllHigh(), "0.70 on every estimator should count as high")

	oneBelow := agg.Aggregate(
		score(EstimatorKeyword, 0.70, 1.0),
		score(EstimatorStatistical, 0.699, 1.0),
		score(EstimatorFeature, 0.70, 1.0),
		nil,
	)
	assert.False(t, oneBelow.AllHigh())
}

func TestGoverningScorePrefersConfidentFeatureEstimator(t *testing.T) {
	agg := NewScoreAggregator()

	result := agg.Aggregate(
		score(EstimatorKeyword, 0.1, 1.0),
		score(EstimatorStatistical, 0.1, 1.0),
		score(EstimatorFeature, 0.97, 0.94),
		nil,
	)

	assert.Equal(t, 0.97, result.GoverningScore())
}

func TestGoverningScoreFallsBackToWeightedWhenFeatureDegraded(t *testing.T) {
	agg := NewScoreAggregator()

	result := agg.Aggregate(
		score(EstimatorKeyword, 0.9, 1.0),
		score(EstimatorStatistical, 0.9, 1.0),
		NeutralScore(EstimatorFeature, "model unavailable"),
		nil,
	)

	assert.True(t, result.FeatureBased.Degraded())
	assert.InDelta(t, result.WeightedScore(), result.GoverningScore(), 1e-9)
}

func TestNeutralScore(t *testing.T) {
	neutral := NeutralScore(EstimatorStatistical, "model not loaded")

	assert.Equal(t, 0.5, neutral.Probability)
	assert.Equal(t, 0.0, neutral.Confidence)
	assert.True(t, neutral.Degraded())
	assert.Equal(t, "model not loaded", neutral.Details["degraded"])

	noReason := NeutralScore(EstimatorKeyword, "")
	assert.Nil(t, noReason.Details)
}
