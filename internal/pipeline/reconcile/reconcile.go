// Package reconcile drives one or more speech-to-text providers per
// job, classifies failures for fallback, and merges multi-model output
// into a single authoritative segment set with per-segment alternative
// transcripts.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"sort"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bangla-dub/backend/internal/db/models"
	"github.com/bangla-dub/backend/internal/pipeline/confidence"
	"github.com/bangla-dub/backend/internal/pipeline/errclass"
	"github.com/bangla-dub/backend/internal/pipeline/standards"
	"github.com/bangla-dub/backend/internal/provider"
)

// AllFailedError reports that every provider in the fallback chain
// failed. Last carries the classification of the final attempt.
type AllFailedError struct {
	Attempts int
	Last     errclass.Classification
}

func (e *AllFailedError) Error() string {
	return fmt.Sprintf("all providers failed (%d attempts), last: %s", e.Attempts, e.Last.Message)
}

// Outcome is the reconciled result for one job.
type Outcome struct {
	Segments []*models.Segment
	Provider string // authoritative provider
	Failures []errclass.Classification
}

// Reconciler invokes recognizers sequentially in priority order with
// fallback. Sequential keeps quota burn down on providers likely to be
// skipped.
type Reconciler struct {
	recognizers []provider.Recognizer // priority order
}

func New(recognizers ...provider.Recognizer) *Reconciler {
	return &Reconciler{recognizers: recognizers}
}

// ProviderNames returns the configured recognizer names in priority order.
func (r *Reconciler) ProviderNames() []string {
	names := make([]string, 0, len(r.recognizers))
	for _, rec := range r.recognizers {
		names = append(names, rec.Name())
	}
	return names
}

type providerResult struct {
	name   string
	result *provider.RecognizeResult
}

// Run transcribes the audio with the selected providers (all configured
// ones when names is empty) and reconciles the results. The first
// success in priority order is authoritative; later successes are
// attached per-segment as alternatives, aligned by time overlap.
func (r *Reconciler) Run(ctx context.Context, videoID, audioPath, language string, names []string, updateProgress func(float64)) (*Outcome, error) {
	selected := r.selectRecognizers(names)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no speech-to-text providers configured")
	}

	var results []providerResult
	var failures []errclass.Classification

	for i, rec := range selected {
		updateProgress(0.1 + 0.6*float64(i)/float64(len(selected)))
		log.Printf("[reconcile] trying provider %s (%d/%d)", rec.Name(), i+1, len(selected))

		res, err := rec.Recognize(ctx, provider.RecognizeRequest{
			AudioPath: audioPath,
			Language:  language,
		})
		if err != nil {
			cls := errclass.Classify(err)
			failures = append(failures, cls)
			log.Printf("[reconcile] provider %s failed (%s): %v", rec.Name(), cls.Code, err)
			if !cls.Retryable {
				// A format or missing-file error will fail every
				// provider the same way; stop burning quota.
				break
			}
			continue
		}
		if len(res.Segments) == 0 {
			failures = append(failures, errclass.Classification{
				Code:      errclass.CodeUnknownError,
				Message:   fmt.Sprintf("Provider %s returned no segments.", rec.Name()),
				Retryable: true,
			})
			log.Printf("[reconcile] provider %s returned no segments", rec.Name())
			continue
		}
		results = append(results, providerResult{name: rec.Name(), result: res})
	}

	if len(results) == 0 {
		last := errclass.Classification{Code: errclass.CodeUnknownError, Message: "No provider was attempted.", Retryable: true}
		if len(failures) > 0 {
			last = failures[len(failures)-1]
		}
		return nil, &AllFailedError{Attempts: len(failures), Last: last}
	}

	updateProgress(0.8)

	authoritative := results[0]
	segments := buildSegments(videoID, authoritative)

	for _, alt := range results[1:] {
		attached := attachAlternatives(segments, alt)
		log.Printf("[reconcile] attached %d/%d alternative segments from %s",
			attached, len(alt.result.Segments), alt.name)
	}

	scoreSegments(segments)

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})

	updateProgress(0.9)

	return &Outcome{
		Segments: segments,
		Provider: authoritative.name,
		Failures: failures,
	}, nil
}

func (r *Reconciler) selectRecognizers(names []string) []provider.Recognizer {
	if len(names) == 0 {
		return r.recognizers
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var selected []provider.Recognizer
	for _, rec := range r.recognizers {
		if wanted[rec.Name()] {
			selected = append(selected, rec)
		}
	}
	return selected
}

// buildSegments converts the authoritative provider result into model
// segments, splitting any span that exceeds the standards maximum.
func buildSegments(videoID string, res providerResult) []*models.Segment {
	var segments []*models.Segment
	for _, ps := range res.result.Segments {
		if ps.End <= ps.Start || ps.Text == "" {
			continue
		}
		for _, piece := range standards.SplitLongSegment(ps.Text, ps.Start, ps.End, standards.MaxDuration) {
			segments = append(segments, &models.Segment{
				ID:           uuid.New().String(),
				VideoID:      videoID,
				Text:         piece.Text,
				StartTime:    piece.Start,
				EndTime:      piece.End,
				Confidence:   ps.Confidence, // raw until scored
				ProviderName: res.name,
				SpeakerID:    ps.SpeakerID,
				SpeakerName:  ps.SpeakerName,
			})
		}
	}
	return segments
}

// attachAlternatives pairs another provider's segments with the
// authoritative set by time overlap (interval intersection), not by
// positional index, since providers segment audio differently.
// Alternative segments overlapping nothing are dropped.
func attachAlternatives(segments []*models.Segment, alt providerResult) int {
	attached := 0
	for _, as := range alt.result.Segments {
		if as.Text == "" {
			continue
		}
		best := -1
		bestOverlap := 0.0
		for i, seg := range segments {
			o := overlap(seg.StartTime, seg.EndTime, as.Start, as.End)
			if o > bestOverlap {
				bestOverlap = o
				best = i
			}
		}
		if best < 0 || segments[best].AlternativeText != "" {
			continue
		}
		segments[best].AlternativeText = as.Text
		segments[best].AlternativeProviderName = alt.name
		attached++
	}
	return attached
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}

// scoreSegments runs each authoritative segment through the standards
// engine and confidence scorer before persistence.
func scoreSegments(segments []*models.Segment) {
	for _, seg := range segments {
		report := standards.Validate(seg.Text, seg.StartTime, seg.EndTime, false)
		seg.Confidence = confidence.Score(
			seg.Confidence,
			seg.ProviderName,
			report.QualityScore,
			utf8.RuneCountInString(seg.Text),
			seg.EndTime-seg.StartTime,
		)
		if !report.IsValid {
			log.Printf("[reconcile] segment %.2f-%.2f violates standards: %v",
				seg.StartTime, seg.EndTime, report.Violations)
		}
	}
}
