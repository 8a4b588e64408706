package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const openAITranscriptionURL = "https://api.openai.com/v1/audio/transcriptions"

// OpenAIWhisperRecognizer uses the OpenAI Whisper API.
type OpenAIWhisperRecognizer struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIWhisperRecognizer(apiKey string) *OpenAIWhisperRecognizer {
	return &OpenAIWhisperRecognizer{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

func (c *OpenAIWhisperRecognizer) Name() string {
	return "openai"
}

func (c *OpenAIWhisperRecognizer) Recognize(ctx context.Context, req RecognizeRequest) (*RecognizeResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}
	if req.AudioPath == "" {
		return nil, fmt.Errorf("openai: empty audio path")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	audioFile, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return nil, err
	}

	writer.WriteField("model", "whisper-1")
	writer.WriteField("response_format", "verbose_json")
	if req.Language != "" && req.Language != "auto" {
		writer.WriteField("language", req.Language)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", openAITranscriptionURL, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[openai] sending transcription request (audio: %s)", req.AudioPath)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(c.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(c.Name(), resp.StatusCode, body)
	}

	var apiResp struct {
		Text     string `json:"text"`
		Language string `json:"language"`
		Segments []struct {
			Start        float64 `json:"start"`
			End          float64 `json:"end"`
			Text         string  `json:"text"`
			AvgLogprob   float64 `json:"avg_logprob"`
			NoSpeechProb float64 `json:"no_speech_prob"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := &RecognizeResult{
		Text:     strings.TrimSpace(apiResp.Text),
		Language: apiResp.Language,
	}

	var confSum float64
	for _, s := range apiResp.Segments {
		conf := logprobToConfidence(s.AvgLogprob)
		if s.NoSpeechProb > 0.5 {
			conf *= 0.5
		}
		result.Segments = append(result.Segments, Segment{
			Text:       strings.TrimSpace(s.Text),
			Start:      s.Start,
			End:        s.End,
			Confidence: conf,
		})
		confSum += conf
	}

	if len(result.Segments) > 0 {
		result.Confidence = confSum / float64(len(result.Segments))
	} else {
		result.Confidence = defaultRawConfidence
	}

	return result, nil
}

// logprobToConfidence maps the Whisper average log probability onto [0,1].
func logprobToConfidence(avgLogprob float64) float64 {
	conf := math.Exp(avgLogprob)
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}
