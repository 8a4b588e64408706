package errclass

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/bangla-dub/backend/internal/provider"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantCode  Code
		retryable bool
	}{
		{
			name:      "nil error",
			err:       nil,
			wantCode:  CodeUnknownError,
			retryable: true,
		},
		{
			name:      "confirmation gate",
			err:       errors.New("source transcript not confirmed: video abc"),
			wantCode:  CodeNotConfirmed,
			retryable: false,
		},
		{
			name:      "recognizer chain exhausted",
			err:       errors.New("all providers failed (2 attempts), last: quota exceeded"),
			wantCode:  CodeAllProvidersFailed,
			retryable: true,
		},
		{
			name:      "translator chain exhausted",
			err:       errors.New("all translation providers failed: gemini: 500; deepl: 503"),
			wantCode:  CodeAllProvidersFailed,
			retryable: true,
		},
		{
			name:      "unique constraint",
			err:       errors.New("UNIQUE constraint failed: segments.id"),
			wantCode:  CodeDatabaseConstraint,
			retryable: true,
		},
		{
			name:      "not null column",
			err:       errors.New("NOT NULL constraint failed: translations.text"),
			wantCode:  CodeDatabaseConstraint,
			retryable: true,
		},
		{
			name:      "http 429 status",
			err:       &provider.Error{Provider: "gemini", StatusCode: 429, Body: "resource exhausted"},
			wantCode:  CodeAPIQuotaExceeded,
			retryable: true,
		},
		{
			name:      "wrapped 429 status",
			err:       fmt.Errorf("translate: %w", &provider.Error{Provider: "openai", StatusCode: 429, Body: "slow down"}),
			wantCode:  CodeAPIQuotaExceeded,
			retryable: true,
		},
		{
			name:      "quota in message",
			err:       errors.New("gemini error (status 403): quota exceeded for project"),
			wantCode:  CodeAPIQuotaExceeded,
			retryable: true,
		},
		{
			name:      "rate limit in message",
			err:       errors.New("Rate limit reached, try again later"),
			wantCode:  CodeAPIQuotaExceeded,
			retryable: true,
		},
		{
			name:      "ffmpeg invalid data",
			err:       errors.New("unsupported format: Invalid data found when processing input"),
			wantCode:  CodeUnsupportedFormat,
			retryable: false,
		},
		{
			name:      "missing codec",
			err:       errors.New("could not find codec parameters for stream 0"),
			wantCode:  CodeUnsupportedFormat,
			retryable: false,
		},
		{
			name:      "file not found message",
			err:       errors.New("file not found: /media/clip.mp4"),
			wantCode:  CodeFileNotFound,
			retryable: false,
		},
		{
			name:      "wrapped os.ErrNotExist",
			err:       fmt.Errorf("stat input: %w", os.ErrNotExist),
			wantCode:  CodeFileNotFound,
			retryable: false,
		},
		{
			name:      "connection refused",
			err:       errors.New("dial tcp 127.0.0.1:9000: connect: connection refused"),
			wantCode:  CodeNetworkError,
			retryable: true,
		},
		{
			name:      "context deadline",
			err:       errors.New("Post \"https://api.openai.com\": context deadline exceeded"),
			wantCode:  CodeNetworkError,
			retryable: true,
		},
		{
			name:      "unknown",
			err:       errors.New("something odd happened"),
			wantCode:  CodeUnknownError,
			retryable: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Classify(%v).Code = %s, want %s", tt.err, got.Code, tt.wantCode)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("Classify(%v).Retryable = %v, want %v", tt.err, got.Retryable, tt.retryable)
			}
			if got.Message == "" {
				t.Error("classification message must not be empty")
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	errs := []error{
		errors.New("quota exceeded"),
		errors.New("connection reset by peer"),
		&provider.Error{Provider: "deepl", StatusCode: 456, Body: "quota for this billing period exceeded"},
		errors.New("whatever"),
	}
	for _, err := range errs {
		first := Classify(err)
		for i := 0; i < 5; i++ {
			if got := Classify(err); got != first {
				t.Fatalf("Classify(%v) not deterministic: %+v vs %+v", err, got, first)
			}
		}
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	nonRetryable := []Code{CodeUnsupportedFormat, CodeFileNotFound, CodeNotConfirmed}
	for _, code := range nonRetryable {
		if Retryable(code) {
			t.Errorf("Retryable(%s) = true, want false", code)
		}
	}
	retryable := []Code{
		CodeDatabaseConstraint, CodeAPIQuotaExceeded, CodeNetworkError,
		CodeUnknownError, CodeAllProvidersFailed,
	}
	for _, code := range retryable {
		if !Retryable(code) {
			t.Errorf("Retryable(%s) = false, want true", code)
		}
	}
}
