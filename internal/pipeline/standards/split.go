package standards

import (
	"math"
	"strings"
)

// Piece is one sub-segment produced by SplitLongSegment.
type Piece struct {
	Text  string
	Start float64
	End   float64
}

// sentence terminators; "।" is the Bengali danda.
const sentenceTerminators = ".!?।…"

// SplitLongSegment splits a segment exceeding maxDuration into pieces at
// sentence boundaries, or by proportional word count when the text is a
// single long sentence. Piece time spans partition the original span
// exactly; each piece is ideally at most maxDuration long, though one
// dominant sentence can still exceed it.
func SplitLongSegment(text string, start, end, maxDuration float64) []Piece {
	duration := end - start
	if duration <= maxDuration || strings.TrimSpace(text) == "" {
		return []Piece{{Text: text, Start: start, End: end}}
	}

	parts := splitSentences(text)
	if len(parts) < 2 {
		parts = splitProportionally(text, duration, maxDuration)
	}
	if len(parts) < 2 {
		return []Piece{{Text: text, Start: start, End: end}}
	}

	// Greedily pack sentences into chunks whose projected duration stays
	// within maxDuration.
	totalWords := 0
	for _, p := range parts {
		totalWords += len(strings.Fields(p))
	}
	if totalWords == 0 {
		return []Piece{{Text: text, Start: start, End: end}}
	}

	var chunks []string
	var chunk []string
	chunkWords := 0
	for _, p := range parts {
		w := len(strings.Fields(p))
		projected := duration * float64(chunkWords+w) / float64(totalWords)
		if chunkWords > 0 && projected > maxDuration {
			chunks = append(chunks, strings.Join(chunk, " "))
			chunk = nil
			chunkWords = 0
		}
		chunk = append(chunk, p)
		chunkWords += w
	}
	if len(chunk) > 0 {
		chunks = append(chunks, strings.Join(chunk, " "))
	}

	// Distribute the time span proportionally to word count.
	pieces := make([]Piece, 0, len(chunks))
	cursor := start
	for i, c := range chunks {
		frac := float64(len(strings.Fields(c))) / float64(totalWords)
		pieceEnd := cursor + duration*frac
		if i == len(chunks)-1 {
			pieceEnd = end
		}
		pieces = append(pieces, Piece{Text: c, Start: cursor, End: pieceEnd})
		cursor = pieceEnd
	}
	return pieces
}

// splitSentences splits text after sentence terminators, keeping the
// terminator with the sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current []rune
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		current = append(current, runes[i])
		if strings.ContainsRune(sentenceTerminators, runes[i]) {
			// Swallow consecutive terminators ("?!", "...").
			for i+1 < len(runes) && strings.ContainsRune(sentenceTerminators, runes[i+1]) {
				i++
				current = append(current, runes[i])
			}
			if s := strings.TrimSpace(string(current)); s != "" {
				sentences = append(sentences, s)
			}
			current = nil
		}
	}
	if s := strings.TrimSpace(string(current)); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitProportionally breaks a single long sentence into word groups so
// that each group's projected duration is at most maxDuration.
func splitProportionally(text string, duration, maxDuration float64) []string {
	words := strings.Fields(text)
	if len(words) < 2 {
		return []string{text}
	}

	n := int(math.Ceil(duration / maxDuration))
	if n < 2 {
		n = 2
	}
	if n > len(words) {
		n = len(words)
	}

	per := int(math.Ceil(float64(len(words)) / float64(n)))
	var groups []string
	for i := 0; i < len(words); i += per {
		end := i + per
		if end > len(words) {
			end = len(words)
		}
		groups = append(groups, strings.Join(words[i:end], " "))
	}
	return groups
}
