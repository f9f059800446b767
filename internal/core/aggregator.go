package core

// ScoreAggregator combines the three estimator outputs into one analysis
// result. It is a pure function with no failure modes of its own: a degraded
// estimator shows up as a neutral score, never as an aborted aggregation.
type ScoreAggregator struct{}

// NewScoreAggregator creates a new score aggregator.
func NewScoreAggregator() *ScoreAggregator {
	return &ScoreAggregator{}
}

// Aggregate assembles an AnalysisResult from the three scores. The estimator
// name on each score is normalized to its slot so downstream consumers can
// rely on the fixed ordering.
func (a *ScoreAggregator) Aggregate(keyword, statistical, featureBased FilterScore, msgCtx *MessageContext) AnalysisResult {
	keyword.Estimator = EstimatorKeyword
	statistical.Estimator = EstimatorStatistical
	featureBased.Estimator = EstimatorFeature

	return AnalysisResult{
		Keyword:      clampScore(keyword),
		Statistical:  clampScore(statistical),
		FeatureBased: clampScore(featureBased),
		Context:      msgCtx,
	}
}

func clampScore(s FilterScore) FilterScore {
	s.Probability = clamp01(s.Probability)
	s.Confidence = clamp01(s.Confidence)
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
