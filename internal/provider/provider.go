package provider

import "context"

// Segment is a single recognized utterance with a time span.
// All adapters normalize into this shape; provider-specific field
// names never leak past this package.
type Segment struct {
	Text        string
	Start       float64 // seconds
	End         float64 // seconds
	Confidence  float64 // provider-reported, [0,1]; defaultRawConfidence if not reported
	SpeakerID   string
	SpeakerName string
}

// RecognizeRequest is the input for a speech-to-text call.
type RecognizeRequest struct {
	AudioPath string // mono 16kHz PCM WAV
	Language  string // "bn", "auto", etc.
}

// RecognizeResult is the normalized output of any speech-to-text provider.
type RecognizeResult struct {
	Text       string
	Segments   []Segment
	Confidence float64 // overall raw confidence, [0,1]
	Language   string
}

// Recognizer is the common interface for all speech-to-text providers.
// Implementations do not retry; retries and fallback belong to the reconciler.
type Recognizer interface {
	Recognize(ctx context.Context, req RecognizeRequest) (*RecognizeResult, error)
	Name() string
}

// TranslateRequest is the input for a batch translation call.
// Text carries the full marked-up batch; the caller parses the response.
type TranslateRequest struct {
	Text           string
	Instructions   string // system prompt / translation guidance
	SourceLanguage string
	TargetLanguage string
}

// Translator is the common interface for all translation providers.
type Translator interface {
	Translate(ctx context.Context, req TranslateRequest) (string, error)
	Name() string
}

// defaultRawConfidence is used when a provider does not report confidence.
const defaultRawConfidence = 0.85
