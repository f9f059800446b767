package estimator

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/core"
)

// pattern is one weighted spam signal.
type pattern struct {
	name   string
	weight float64
	re     *regexp.Regexp
}

// KeywordEstimator scores messages by explicit spam patterns: contact
// channels, money bait, calls to action, casino vocabulary, obfuscation
// tricks. Matched weights accumulate into a capped probability.
type KeywordEstimator struct {
	patterns []pattern
	logger   *zap.Logger
}

// NewKeywordEstimator creates the keyword estimator with the built-in
// pattern set.
func NewKeywordEstimator(logger *zap.Logger) *KeywordEstimator {
	return &KeywordEstimator{
		patterns: []pattern{
			{"phone", 0.30, regexp.MustCompile(`\+?\d[\d\s\-()]{9,}`)},
			{"url", 0.25, regexp.MustCompile(`(?i)https?://|bit\.ly|t\.me/|tinyurl\.`)},
			{"email", 0.15, regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)},
			{"money", 0.30, regexp.MustCompile(`(?i)[$€£₽]\s*\d+|\d+\s*[$€£₽]|per\s+(?:day|week)|easy\s+money|passive\s+income`)},
			{"age_gate", 0.20, regexp.MustCompile(`(?i)\b(?:18|21)\s*\+`)},
			{"cta", 0.25, regexp.MustCompile(`(?i)\b(?:click|join\s+now|sign\s+up|register|claim|limited\s+offer|act\s+now)\b`)},
			{"dm_bait", 0.35, regexp.MustCompile(`(?i)\b(?:dm\s+me|write\s+me|message\s+me|text\s+me|in\s+private)\b`)},
			{"remote_work", 0.20, regexp.MustCompile(`(?i)\b(?:work\s+from\s+home|remote\s+(?:work|job)|from\s+your\s+phone)\b`)},
			{"casino", 0.40, regexp.MustCompile(`(?i)\b(?:casino|slots?|jackpot|betting|bookmaker|deposit\s+bonus)\b`)},
			{"obfuscation", 0.25, regexp.MustCompile(`[@#$%&*]{1,}[\p{L}]{2,}|[\p{L}]{2,}[@#$%&*]{1,}`)},
		},
		logger: logger,
	}
}

// Name implements core.Estimator.
func (e *KeywordEstimator) Name() string {
	return core.EstimatorKeyword
}

// Score sums the weights of all matched patterns, capped at 1. A matcher has
// nothing to be uncertain about, so confidence is always 1.
func (e *KeywordEstimator) Score(_ context.Context, text string, _ *core.MessageContext) (core.FilterScore, error) {
	var total float64
	var matched []string
	for _, p := range e.patterns {
		if p.re.MatchString(text) {
			total += p.weight
			matched = append(matched, p.name)
		}
	}
	if total > 1 {
		total = 1
	}

	details := map[string]string{
		"matched": strings.Join(matched, ","),
		"hits":    strconv.Itoa(len(matched)),
	}
	e.logger.Debug("Keyword patterns evaluated",
		zap.Float64("score", total),
		zap.Strings("matched", matched))

	return core.FilterScore{
		Estimator:   core.EstimatorKeyword,
		Probability: total,
		Confidence:  1.0,
		Details:     details,
	}, nil
}
