// Package media wraps the external ffmpeg/ffprobe tools behind the
// extraction contract the pipeline needs: a mono 16kHz PCM stream and
// the source duration. Failures surface with messages the error
// classifier maps to FILE_NOT_FOUND or UNSUPPORTED_FORMAT.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ExtractAudio extracts the audio track of a media file as WAV 16kHz
// mono and returns the temp file path plus the source duration in
// seconds. The caller removes the file when done.
func ExtractAudio(ctx context.Context, videoPath string) (string, float64, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return "", 0, fmt.Errorf("file not found: %s", videoPath)
	}

	duration, err := ProbeDuration(ctx, videoPath)
	if err != nil {
		return "", 0, err
	}

	tmpFile, err := os.CreateTemp("", "dub-audio-*.wav")
	if err != nil {
		return "", 0, err
	}
	tmpFile.Close()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn", // no video
		"-acodec", "pcm_s16le",
		"-ar", "16000", // 16kHz
		"-ac", "1", // mono
		"-y", // overwrite
		tmpFile.Name(),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmpFile.Name())
		out := string(output)
		lower := strings.ToLower(out)
		if strings.Contains(lower, "invalid data") || strings.Contains(lower, "codec") ||
			strings.Contains(lower, "could not find") {
			return "", 0, fmt.Errorf("unsupported format: %s: %w", strings.TrimSpace(out), err)
		}
		return "", 0, fmt.Errorf("ffmpeg: %s: %w", strings.TrimSpace(out), err)
	}

	return tmpFile.Name(), duration, nil
}

// ProbeDuration returns the media duration in seconds via ffprobe.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", result.Format.Duration, err)
	}
	return duration, nil
}
