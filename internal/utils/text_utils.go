package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// TextProcessor prepares raw chat text for the estimators. Spam routinely
// abuses compatibility codepoints (fullwidth letters, styled digits) to slip
// past pattern matching, so everything is NFKC-folded first.
type TextProcessor struct {
	maxSize int
	logger  *zap.Logger
}

// NewTextProcessor creates a new TextProcessor. maxSize caps the byte length
// handed to the estimators; zero or negative disables the cap.
func NewTextProcessor(maxSize int, logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		maxSize: maxSize,
		logger:  logger,
	}
}

// Normalize sanitizes, NFKC-folds, whitespace-collapses and truncates text
// in one operation.
func (tp *TextProcessor) Normalize(text string) string {
	text = tp.SanitizeUTF8(text)
	text = norm.NFKC.String(text)
	text = collapseWhitespace(text)
	return tp.TruncateText(text, tp.maxSize)
}

// TruncateText safely truncates text to the specified maximum byte size,
// keeping the result valid UTF-8.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Message text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)))

	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 sequences.
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}
	return string(result)
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
