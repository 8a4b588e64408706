// Package translation packs confirmed segments into a single marked-up
// prompt, calls a translation provider with a fallback chain, parses
// the response back into per-segment translations, and scores each one.
package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/bangla-dub/backend/internal/db/models"
	"github.com/bangla-dub/backend/internal/job"
	"github.com/bangla-dub/backend/internal/pipeline/confidence"
	"github.com/bangla-dub/backend/internal/pipeline/errclass"
	"github.com/bangla-dub/backend/internal/pipeline/standards"
	"github.com/bangla-dub/backend/internal/provider"
)

// ErrNotConfirmed gates batch translation: the source transcript must
// be explicitly confirmed before any translation is permitted.
var ErrNotConfirmed = errors.New("source transcript not confirmed")

// rawTranslationConfidence is the base confidence for LLM translation
// output, which reports no confidence of its own.
const rawTranslationConfidence = 0.9

// Store is the persistence surface the engine needs. *db.Database
// satisfies it.
type Store interface {
	GetVideo(id string) (*models.Video, error)
	GetSegment(id string) (*models.Segment, error)
	ListSegments(videoID string) ([]*models.Segment, error)
	UpsertTranslation(t *models.Translation) error
}

// Result summarizes one batch translation run. A non-empty Missing
// slice marks a partial translation: those segment indices had no
// parseable line in the provider response.
type Result struct {
	TargetLanguage string
	Translated     int
	Missing        []int
	Provider       string
}

// Partial reports whether some segments stayed untranslated.
func (r *Result) Partial() bool {
	return len(r.Missing) > 0
}

// Engine is the batch translation engine. Translators are tried in
// order; the first is primary, the rest form the fallback chain.
type Engine struct {
	store Store
	chain []provider.Translator
}

func NewEngine(store Store, translators ...provider.Translator) *Engine {
	return &Engine{store: store, chain: translators}
}

// TranslateVideo batch-translates all confirmed segments of a video
// into the target language, upserting one Translation per segment.
func (e *Engine) TranslateVideo(ctx context.Context, videoID, targetLang string, updateProgress func(float64)) (*Result, error) {
	video, err := e.store.GetVideo(videoID)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", err)
	}
	if !video.TranscriptConfirmed {
		return nil, fmt.Errorf("%w: video %s", ErrNotConfirmed, videoID)
	}

	segments, err := e.store.ListSegments(videoID)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("video %s has no segments to translate", videoID)
	}

	log.Printf("[translate] translating %d segments: video=%s target=%s",
		len(segments), videoID, targetLang)

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}

	updateProgress(0.1)

	response, providerName, err := e.callChain(ctx, provider.TranslateRequest{
		Text:           BuildBatch(texts),
		Instructions:   Instructions(video.SourceLanguage, targetLang),
		SourceLanguage: video.SourceLanguage,
		TargetLanguage: targetLang,
	})
	if err != nil {
		return nil, err
	}

	updateProgress(0.7)

	parsed, missing := ParseBatch(response, len(segments))
	if len(missing) > 0 {
		log.Printf("[translate] WARNING: partial translation, %d/%d segments missing (indices %v)",
			len(missing), len(segments), missing)
	}

	for idx, text := range parsed {
		seg := segments[idx]
		if err := e.saveTranslation(seg, targetLang, text, providerName); err != nil {
			return nil, fmt.Errorf("persist translation for segment %s: %w", seg.ID, err)
		}
	}

	updateProgress(1.0)
	log.Printf("[translate] translation complete: video=%s target=%s translated=%d provider=%s",
		videoID, targetLang, len(parsed), providerName)

	return &Result{
		TargetLanguage: targetLang,
		Translated:     len(parsed),
		Missing:        missing,
		Provider:       providerName,
	}, nil
}

// RetranslateSegment reruns the batch flow for a single segment and
// overwrites the existing translation row in place.
func (e *Engine) RetranslateSegment(ctx context.Context, segmentID, targetLang string) (*models.Translation, error) {
	seg, err := e.store.GetSegment(segmentID)
	if err != nil {
		return nil, fmt.Errorf("load segment: %w", err)
	}
	video, err := e.store.GetVideo(seg.VideoID)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", err)
	}
	if !video.TranscriptConfirmed {
		return nil, fmt.Errorf("%w: video %s", ErrNotConfirmed, video.ID)
	}

	response, providerName, err := e.callChain(ctx, provider.TranslateRequest{
		Text:           BuildBatch([]string{seg.Text}),
		Instructions:   Instructions(video.SourceLanguage, targetLang),
		SourceLanguage: video.SourceLanguage,
		TargetLanguage: targetLang,
	})
	if err != nil {
		return nil, err
	}

	parsed, _ := ParseBatch(response, 1)
	text, ok := parsed[0]
	if !ok {
		return nil, fmt.Errorf("provider %s response did not contain the translated segment", providerName)
	}

	if err := e.saveTranslation(seg, targetLang, text, providerName); err != nil {
		return nil, err
	}

	return &models.Translation{
		SegmentID:      seg.ID,
		TargetLanguage: targetLang,
		Text:           text,
		ProviderName:   providerName,
	}, nil
}

// callChain tries each translator in order. Any failure is classified
// and logged; exhaustion surfaces a combined error naming every
// provider's failure reason.
func (e *Engine) callChain(ctx context.Context, req provider.TranslateRequest) (string, string, error) {
	if len(e.chain) == 0 {
		return "", "", fmt.Errorf("no translation providers configured")
	}

	var reasons []string
	for _, t := range e.chain {
		response, err := t.Translate(ctx, req)
		if err == nil {
			return response, t.Name(), nil
		}
		cls := errclass.Classify(err)
		reasons = append(reasons, fmt.Sprintf("%s: %v", t.Name(), err))
		log.Printf("[translate] provider %s failed (%s): %v", t.Name(), cls.Code, err)
	}

	return "", "", fmt.Errorf("all translation providers failed: %s", strings.Join(reasons, "; "))
}

func (e *Engine) saveTranslation(seg *models.Segment, targetLang, text, providerName string) error {
	report := standards.Validate(text, seg.StartTime, seg.EndTime, false)
	conf := confidence.TranslationScore(
		rawTranslationConfidence,
		providerName,
		report.QualityScore,
		seg.Text,
		text,
		seg.EndTime-seg.StartTime,
	)

	return e.store.UpsertTranslation(&models.Translation{
		ID:             uuid.New().String(),
		SegmentID:      seg.ID,
		TargetLanguage: targetLang,
		Text:           text,
		Confidence:     conf,
		ProviderName:   providerName,
	})
}

// HandleJob processes a batch translation job.
func (e *Engine) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) error {
	var params job.TranslateParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}
	if params.TargetLang == "" {
		return fmt.Errorf("missing target language")
	}

	result, err := e.TranslateVideo(ctx, j.VideoID, params.TargetLang, updateProgress)
	if err != nil {
		return err
	}

	resultJSON, _ := json.Marshal(job.TranslateResult{
		TargetLang: result.TargetLanguage,
		Translated: result.Translated,
		Missing:    result.Missing,
		Provider:   result.Provider,
	})
	j.Result = resultJSON
	return nil
}
