// Package confidence derives a single [0,1] confidence value for a
// transcript segment or translation from the provider's raw confidence,
// the subtitle standards compliance score, and structural heuristics.
package confidence

import (
	"strings"
	"unicode/utf8"

	"github.com/bangla-dub/backend/internal/pipeline/standards"
)

// providerReliability weights reflect observed output quality per engine.
var providerReliability = map[string]float64{
	"openai":      0.95,
	"whisper.cpp": 0.92,
	"deepl":       0.90,
	"gemini":      0.88,
}

const defaultReliability = 0.8

// Score combines the provider-weighted raw confidence (70%) with the
// standards compliance score (30%), then applies small structural
// bonuses and penalties. The result is clamped to [0,1].
func Score(raw float64, providerName string, qualityScore float64, textLen int, duration float64) float64 {
	reliability, ok := providerReliability[providerName]
	if !ok {
		reliability = defaultReliability
	}
	raw = clamp01(raw)

	score := 0.7*(raw*reliability) + 0.3*(qualityScore/100.0)

	if duration >= standards.MinDuration && duration <= standards.MaxDuration {
		score += 0.05
	}
	if textLen >= 5 && textLen <= standards.MaxCharsPerLine*standards.MaxLines {
		score += 0.03
	}
	if textLen < 5 {
		// Very short text is likely noise or a fragment.
		score -= 0.10
	}

	return clamp01(score)
}

// TranslationScore scores a translated segment. On top of Score it
// weighs the source/target length ratio as a proxy for omission or
// padding, and penalizes structural error markers in the output.
func TranslationScore(raw float64, providerName string, qualityScore float64, sourceText, translatedText string, duration float64) float64 {
	translated := strings.TrimSpace(translatedText)
	source := strings.TrimSpace(sourceText)

	score := Score(raw, providerName, qualityScore, utf8.RuneCountInString(translated), duration)

	srcLen := utf8.RuneCountInString(source)
	dstLen := utf8.RuneCountInString(translated)
	if srcLen > 0 {
		ratio := float64(dstLen) / float64(srcLen)
		if ratio < 0.3 || ratio > 3.0 {
			score -= 0.15
		}
	}

	lower := strings.ToLower(translated)
	if strings.Contains(translated, "[") ||
		strings.Contains(lower, "unable") ||
		strings.Contains(lower, "cannot translate") {
		score -= 0.20
	}

	// The provider echoing the source verbatim usually means it gave up.
	if translated == source {
		score -= 0.15
	}

	if endsWithTerminal(source) && !endsWithTerminal(translated) {
		score -= 0.05
	}

	return clamp01(score)
}

func endsWithTerminal(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return strings.ContainsRune(".!?।…\"'", r)
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
