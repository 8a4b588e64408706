package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/bangla-dub/backend/internal/db"
	"github.com/bangla-dub/backend/internal/db/models"
	"github.com/bangla-dub/backend/internal/job"
	"github.com/bangla-dub/backend/internal/media"
	"github.com/bangla-dub/backend/internal/provider"
)

// Service wires the reconciler into the job queue: it extracts audio,
// runs the provider chain, and persists the reconciled segments.
type Service struct {
	store      *db.Database
	reconciler *Reconciler
}

func NewService(store *db.Database, recognizers ...provider.Recognizer) *Service {
	return &Service{
		store:      store,
		reconciler: New(recognizers...),
	}
}

// Reconciler exposes the underlying reconciler (for provider listing).
func (s *Service) Reconciler() *Reconciler {
	return s.reconciler
}

// HandleJob processes a transcription job.
func (s *Service) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) error {
	var params job.TranscribeParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}

	video, err := s.store.GetVideo(j.VideoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}

	language := params.Language
	if language == "" {
		language = video.SourceLanguage
	}

	log.Printf("[reconcile] starting transcription: video=%s language=%s providers=%v",
		video.ID, language, params.Providers)

	s.store.SetVideoStatus(video.ID, models.VideoStatusTranscribing)
	updateProgress(0.02)

	audioPath, duration, err := media.ExtractAudio(ctx, video.FilePath)
	if err != nil {
		s.store.SetVideoStatus(video.ID, models.VideoStatusFailed)
		return fmt.Errorf("extract audio: %w", err)
	}
	defer os.Remove(audioPath)

	if video.Duration == 0 && duration > 0 {
		s.store.SetVideoDuration(video.ID, duration)
	}

	updateProgress(0.1)

	outcome, err := s.reconciler.Run(ctx, video.ID, audioPath, language, params.Providers, updateProgress)
	if err != nil {
		s.store.SetVideoStatus(video.ID, models.VideoStatusFailed)
		return err
	}

	// A retried job starts from a clean slate.
	if err := s.store.DeleteSegmentsForVideo(video.ID); err != nil {
		return fmt.Errorf("clear previous segments: %w", err)
	}

	var confSum float64
	for _, seg := range outcome.Segments {
		if err := s.store.InsertSegment(seg); err != nil {
			return fmt.Errorf("persist segment: %w", err)
		}
		confSum += seg.Confidence
	}

	s.store.SetVideoStatus(video.ID, models.VideoStatusTranscribed)

	avg := 0.0
	if len(outcome.Segments) > 0 {
		avg = confSum / float64(len(outcome.Segments))
	}
	resultJSON, _ := json.Marshal(job.TranscribeResult{
		SegmentCount:  len(outcome.Segments),
		Provider:      outcome.Provider,
		AvgConfidence: avg,
	})
	j.Result = resultJSON

	log.Printf("[reconcile] transcription complete: video=%s segments=%d provider=%s avg_confidence=%.2f",
		video.ID, len(outcome.Segments), outcome.Provider, avg)

	updateProgress(1.0)
	return nil
}
