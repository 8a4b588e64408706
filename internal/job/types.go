package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bangla-dub/backend/internal/pipeline/errclass"
)

// JobType represents the kind of job
type JobType string

const (
	JobTranscribe JobType = "transcribe"
	JobTranslate  JobType = "translate"
	JobDub        JobType = "dub"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job represents a queued pipeline stage for one video. A failed job
// carries the error classification code alongside the user-facing
// message.
type Job struct {
	ID          string            `json:"id"`
	Type        JobType           `json:"type"`
	Status      JobStatus         `json:"status"`
	VideoID     string            `json:"video_id"`
	Params      json.RawMessage   `json:"params"`
	Progress    float64           `json:"progress"`
	Result      json.RawMessage   `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	ErrorCode   errclass.Code     `json:"error_code,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// TranscribeParams are parameters for a transcription job
type TranscribeParams struct {
	Providers []string `json:"providers,omitempty"` // subset of configured recognizers; empty = all
	Language  string   `json:"language,omitempty"`  // source language, default "bn"
}

// TranslateParams are parameters for a batch translation job
type TranslateParams struct {
	TargetLang string `json:"target_lang"` // "en", "hi", "ar", "es", "fr"
}

// DubParams are parameters for a dubbing job
type DubParams struct {
	TargetLang string `json:"target_lang"`
}

// TranscribeResult is the output of a successful transcription
type TranscribeResult struct {
	SegmentCount  int     `json:"segment_count"`
	Provider      string  `json:"provider"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// TranslateResult is the output of a successful batch translation
type TranslateResult struct {
	TargetLang string `json:"target_lang"`
	Translated int    `json:"translated"`
	Missing    []int  `json:"missing,omitempty"` // segment indices with no parseable translation
	Provider   string `json:"provider"`
}

// DubResult is the output of a successful dubbing run
type DubResult struct {
	TargetLang string `json:"target_lang"`
	Files      int    `json:"files"`
	OutputDir  string `json:"output_dir"`
}

// JobHandler processes a job. Implementations are provided by the
// pipeline services.
type JobHandler func(ctx context.Context, job *Job, updateProgress func(float64)) error
