// Package dub invokes an external text-to-speech provider for the
// dubbing stage. Synthesis itself is fully delegated; this package only
// drives the provider per translated segment and stores the audio.
package dub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Request is one synthesis call.
type Request struct {
	Text     string
	Language string
	VoiceID  string
}

// Synthesizer is the common interface for text-to-speech providers.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
	Name() string
}

// HTTPSynthesizer posts text to a TTS server and returns raw audio.
type HTTPSynthesizer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPSynthesizer(baseURL, apiKey string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

func (s *HTTPSynthesizer) Name() string {
	return "tts"
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("tts: empty text")
	}

	body, err := json.Marshal(map[string]string{
		"text":     req.Text,
		"language": req.Language,
		"voice_id": req.VoiceID,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts error (status %d): %s", resp.StatusCode, string(audio))
	}

	return audio, nil
}
