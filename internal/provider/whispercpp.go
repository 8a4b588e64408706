package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bangla-dub/backend/internal/subtitle"
)

// WhisperCppRecognizer talks to a whisper.cpp HTTP server (whisper-server).
type WhisperCppRecognizer struct {
	baseURL    string
	httpClient *http.Client
}

func NewWhisperCppRecognizer(baseURL string) *WhisperCppRecognizer {
	return &WhisperCppRecognizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // transcription can be very long
		},
	}
}

func (c *WhisperCppRecognizer) Name() string {
	return "whisper.cpp"
}

func (c *WhisperCppRecognizer) Recognize(ctx context.Context, req RecognizeRequest) (*RecognizeResult, error) {
	if req.AudioPath == "" {
		return nil, fmt.Errorf("whisper.cpp: empty audio path")
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
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	writer.WriteField("response_format", "vtt")
	writer.WriteField("temperature", "0.0")
	if req.Language != "" && req.Language != "auto" {
		writer.WriteField("language", req.Language)
	}
	writer.Close()

	url := c.baseURL + "/inference"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	log.Printf("[whisper.cpp] sending request to %s (audio: %s)", url, req.AudioPath)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(c.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(c.Name(), resp.StatusCode, body)
	}

	vtt := string(body)
	if !strings.HasPrefix(strings.TrimSpace(vtt), "WEBVTT") {
		vtt = "WEBVTT\n\n" + vtt
	}

	return vttToResult(vtt, req.Language), nil
}

// vttToResult normalizes a VTT transcript into the common result shape.
// whisper.cpp does not report per-segment confidence.
func vttToResult(vtt, language string) *RecognizeResult {
	cues := subtitle.ParseVTT(vtt)
	result := &RecognizeResult{
		Confidence: defaultRawConfidence,
		Language:   language,
	}

	var texts []string
	for _, cue := range cues {
		text := strings.ReplaceAll(cue.Text, "\n", " ")
		result.Segments = append(result.Segments, Segment{
			Text:       text,
			Start:      cue.Start,
			End:        cue.End,
			Confidence: defaultRawConfidence,
		})
		texts = append(texts, text)
	}
	result.Text = strings.Join(texts, " ")

	return result
}
