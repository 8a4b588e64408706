package dub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bangla-dub/backend/internal/db"
	"github.com/bangla-dub/backend/internal/job"
)

// Service renders dubbing audio for a video's translations. The voice
// id comes from the video record itself, never from process-wide state.
type Service struct {
	store     *db.Database
	synth     Synthesizer
	audioPath string
}

func NewService(store *db.Database, synth Synthesizer, audioPath string) *Service {
	return &Service{store: store, synth: synth, audioPath: audioPath}
}

// HandleJob processes a dubbing job.
func (s *Service) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) error {
	var params job.DubParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}
	if params.TargetLang == "" {
		return fmt.Errorf("missing target language")
	}

	video, err := s.store.GetVideo(j.VideoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}

	translations, err := s.store.ListTranslations(video.ID, params.TargetLang)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	if len(translations) == 0 {
		return fmt.Errorf("video %s has no %s translations to dub", video.ID, params.TargetLang)
	}

	outDir := filepath.Join(s.audioPath, video.ID, params.TargetLang)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	log.Printf("[dub] synthesizing %d segments: video=%s target=%s voice=%s",
		len(translations), video.ID, params.TargetLang, video.VoiceID)

	for i, t := range translations {
		updateProgress(float64(i) / float64(len(translations)))

		audio, err := s.synth.Synthesize(ctx, Request{
			Text:     t.Text,
			Language: params.TargetLang,
			VoiceID:  video.VoiceID,
		})
		if err != nil {
			return fmt.Errorf("synthesize segment %s: %w", t.SegmentID, err)
		}

		outFile := filepath.Join(outDir, fmt.Sprintf("%04d_%s.wav", i, t.SegmentID))
		if err := os.WriteFile(outFile, audio, 0644); err != nil {
			return fmt.Errorf("save audio: %w", err)
		}
	}

	resultJSON, _ := json.Marshal(job.DubResult{
		TargetLang: params.TargetLang,
		Files:      len(translations),
		OutputDir:  outDir,
	})
	j.Result = resultJSON

	log.Printf("[dub] dubbing complete: video=%s target=%s files=%d", video.ID, params.TargetLang, len(translations))
	updateProgress(1.0)
	return nil
}
