// Package standards validates subtitle segments against broadcast
// formatting rules (duration, line length, line count, reading speed)
// and produces a 0-100 compliance score used by the confidence scorer.
package standards

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Netflix-style defaults. Youth content uses the stricter reading-speed cap.
const (
	MinDuration     = 5.0 / 6.0 // seconds
	MaxDuration     = 7.0       // seconds
	MaxCharsPerLine = 47
	MaxLines        = 2

	MaxReadingSpeed      = 250.0 // words per minute
	YouthMaxReadingSpeed = 180.0
)

// Penalty points subtracted from the 100-point baseline per violation.
const (
	penaltyDurationShort = 15
	penaltyDurationLong  = 10
	penaltyLineTooLong   = 20
	penaltyTooManyLines  = 25
	penaltySpeedTooFast  = 15

	bonusComfortableSpeed = 5
	bonusShortSingleLine  = 3
)

// Report is the outcome of validating one segment or translation.
// It is ephemeral: derived at scoring time and discarded once the
// confidence value is computed.
type Report struct {
	IsValid         bool     `json:"is_valid"`
	Violations      []string `json:"violations"`
	Recommendations []string `json:"recommendations"`
	QualityScore    float64  `json:"quality_score"` // [0,100]
}

// BreakLines greedily packs words into lines of at most MaxCharsPerLine
// characters. A single word longer than the limit is hard-split. Output
// is capped at MaxLines; text beyond that is dropped, so segments that
// long should be split upstream first.
func BreakLines(text string) []string {
	words := strings.Fields(text)
	var lines []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			lines = append(lines, string(current))
			current = nil
		}
	}

	for _, word := range words {
		w := []rune(word)
		for len(w) > MaxCharsPerLine {
			flush()
			lines = append(lines, string(w[:MaxCharsPerLine]))
			w = w[MaxCharsPerLine:]
		}
		if len(w) == 0 {
			continue
		}
		switch {
		case len(current) == 0:
			current = w
		case len(current)+1+len(w) <= MaxCharsPerLine:
			current = append(current, ' ')
			current = append(current, w...)
		default:
			flush()
			current = w
		}
	}
	flush()

	if len(lines) > MaxLines {
		lines = lines[:MaxLines]
	}
	return lines
}

// ReadingSpeed returns the words-per-minute rate for a text shown over
// the given duration in seconds.
func ReadingSpeed(text string, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	words := len(strings.Fields(text))
	return float64(words) / (duration / 60.0)
}

// Validate checks one text+time-span against the subtitle standards and
// returns a report with a compliance score. IsValid holds iff there are
// zero violations.
func Validate(text string, start, end float64, youth bool) Report {
	r := Report{QualityScore: 100}
	duration := end - start

	if duration < MinDuration {
		r.Violations = append(r.Violations,
			fmt.Sprintf("Duration too short: %.2fs (minimum %.2fs)", duration, MinDuration))
		r.Recommendations = append(r.Recommendations,
			"Merge with an adjacent segment or extend the display time")
		r.QualityScore -= penaltyDurationShort
	}

	if duration > MaxDuration {
		r.Violations = append(r.Violations,
			fmt.Sprintf("Duration too long: %.2fs (maximum %.2fs)", duration, MaxDuration))
		r.Recommendations = append(r.Recommendations,
			"Split the segment at a sentence boundary")
		r.QualityScore -= penaltyDurationLong
	}

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if utf8.RuneCountInString(line) > MaxCharsPerLine {
			r.Violations = append(r.Violations,
				fmt.Sprintf("Line too long: %d characters (maximum %d)",
					utf8.RuneCountInString(line), MaxCharsPerLine))
			r.Recommendations = append(r.Recommendations,
				"Break the line: "+strings.Join(BreakLines(line), " / "))
			r.QualityScore -= penaltyLineTooLong
			break
		}
	}

	if len(lines) > MaxLines {
		r.Violations = append(r.Violations,
			fmt.Sprintf("Too many lines: %d (maximum %d)", len(lines), MaxLines))
		r.Recommendations = append(r.Recommendations,
			"Split the segment so each part fits in two lines")
		r.QualityScore -= penaltyTooManyLines
	}

	maxSpeed := MaxReadingSpeed
	if youth {
		maxSpeed = YouthMaxReadingSpeed
	}
	speed := ReadingSpeed(text, duration)
	if speed > maxSpeed {
		r.Violations = append(r.Violations,
			fmt.Sprintf("Reading speed too fast: %.0f wpm (maximum %.0f)", speed, maxSpeed))
		r.Recommendations = append(r.Recommendations,
			"Shorten the text or extend the display time")
		r.QualityScore -= penaltySpeedTooFast
	}

	// Small bonuses for especially comfortable subtitles.
	if speed >= 150 && speed <= 200 {
		r.QualityScore += bonusComfortableSpeed
	}
	if len(lines) == 1 && utf8.RuneCountInString(text) < 40 {
		r.QualityScore += bonusShortSingleLine
	}

	r.QualityScore = math.Max(0, math.Min(100, r.QualityScore))
	r.IsValid = len(r.Violations) == 0
	return r
}
