package models

import "time"

// Video statuses.
const (
	VideoStatusNew          = "new"
	VideoStatusTranscribing = "transcribing"
	VideoStatusTranscribed  = "transcribed"
	VideoStatusConfirmed    = "confirmed"
	VideoStatusFailed       = "failed"
)

// Video is a registered source video whose pipeline produces segments
// and translations. VoiceID is carried explicitly on the record so the
// dubbing stage never depends on process-wide state.
type Video struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	FilePath            string    `json:"file_path"`
	Duration            float64   `json:"duration"`
	SourceLanguage      string    `json:"source_language"`
	TranscriptConfirmed bool      `json:"transcript_confirmed"`
	VoiceID             string    `json:"voice_id,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
}

// Segment is one transcribed utterance of a video. When a second
// provider also recognized the span, its text is attached as the
// alternative and the user may switch between the two.
type Segment struct {
	ID                      string    `json:"id"`
	VideoID                 string    `json:"video_id"`
	Text                    string    `json:"text"`
	StartTime               float64   `json:"start_time"`
	EndTime                 float64   `json:"end_time"`
	Confidence              float64   `json:"confidence"` // [0,1]
	ProviderName            string    `json:"provider_name"`
	AlternativeText         string    `json:"alternative_text,omitempty"`
	AlternativeProviderName string    `json:"alternative_provider_name,omitempty"`
	IsAlternativeSelected   bool      `json:"is_alternative_selected"`
	SpeakerID               string    `json:"speaker_id,omitempty"`
	SpeakerName             string    `json:"speaker_name,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// Translation is the translated text of one segment into one target
// language. At most one row exists per (segment, target language) pair.
type Translation struct {
	ID             string    `json:"id"`
	SegmentID      string    `json:"segment_id"`
	TargetLanguage string    `json:"target_language"`
	Text           string    `json:"text"`
	Confidence     float64   `json:"confidence"` // [0,1]
	ProviderName   string    `json:"provider_name"`
	UpdatedAt      time.Time `json:"updated_at"`
}
