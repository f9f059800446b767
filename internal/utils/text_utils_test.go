package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNormalizeFoldsCompatibilityCodepoints(t *testing.T) {
	tp := NewTextProcessor(0, zap.NewNop())

	// Fullwidth letters are a common pattern-evasion trick.
	assert.Equal(t, "casino", tp.Normalize("ｃａｓｉｎｏ"))
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	tp := NewTextProcessor(0, zap.NewNop())

	assert.Equal(t, "dm me now", tp.Normalize("  dm \t me\n\n now  "))
}

func TestNormalizeTruncatesToMaxSize(t *testing.T) {
	tp := NewTextProcessor(10, zap.NewNop())

	out := tp.Normalize(strings.Repeat("a", 50))
	assert.Equal(t, strings.Repeat("a", 10), out)
}

func TestTruncateTextKeepsValidUTF8(t *testing.T) {
	tp := NewTextProcessor(0, zap.NewNop())

	// Cutting at 5 bytes would split the second two-byte rune.
	out := tp.TruncateText("ааа", 5)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "аа", out)
}

func TestTruncateTextZeroMaxDisablesCap(t *testing.T) {
	tp := NewTextProcessor(0, zap.NewNop())

	long := strings.Repeat("a", 100)
	assert.Equal(t, long, tp.TruncateText(long, 0))
}

func TestSanitizeUTF8DropsInvalidSequences(t *testing.T) {
	tp := NewTextProcessor(0, zap.NewNop())

	out := tp.SanitizeUTF8("ok\xff\xfetext")
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "oktext", out)
}

func TestSanitizeUTF8PassesValidTextThrough(t *testing.T) {
	tp := NewTextProcessor(0, zap.NewNop())

	assert.Equal(t, "привет 你好", tp.SanitizeUTF8("привет 你好"))
}
