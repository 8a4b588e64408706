// Package errclass maps provider and pipeline failures into a closed
// taxonomy with a retryability flag. Classification drives whether the
// reconciler attempts the next provider in a fallback chain and whether
// a failed job may be manually retried.
package errclass

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/bangla-dub/backend/internal/provider"
)

// Code identifies one failure category of the closed taxonomy.
type Code string

const (
	CodeDatabaseConstraint Code = "DATABASE_CONSTRAINT"
	CodeAPIQuotaExceeded   Code = "API_QUOTA_EXCEEDED"
	CodeUnsupportedFormat  Code = "UNSUPPORTED_FORMAT"
	CodeFileNotFound       Code = "FILE_NOT_FOUND"
	CodeNetworkError       Code = "NETWORK_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"

	// Pipeline-level codes, not produced by providers.
	CodeNotConfirmed       Code = "NOT_CONFIRMED"
	CodeAllProvidersFailed Code = "ALL_PROVIDERS_FAILED"
)

// Classification is attached to a failed job and surfaced to the user.
type Classification struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Retryable reports whether a job that failed with this code may be
// manually retried.
func Retryable(code Code) bool {
	switch code {
	case CodeUnsupportedFormat, CodeFileNotFound, CodeNotConfirmed:
		return false
	default:
		return true
	}
}

// Classify maps an error into a Classification. It is deterministic:
// the same error always yields the same code. Checks run in priority
// order; the default is retryable so transient issues are never
// permanently fatal.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Code: CodeUnknownError, Message: "Unknown error.", Retryable: true}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	var provErr *provider.Error
	statusCode := 0
	if errors.As(err, &provErr) {
		statusCode = provErr.StatusCode
	}

	switch {
	case strings.Contains(lower, "not confirmed"):
		return Classification{
			Code:      CodeNotConfirmed,
			Message:   "The source transcript has not been confirmed. Review and confirm it before translating.",
			Retryable: false,
		}

	case strings.Contains(lower, "all providers failed") || strings.Contains(lower, "all translation providers failed"):
		return Classification{
			Code:      CodeAllProvidersFailed,
			Message:   "Every configured provider failed: " + msg,
			Retryable: true,
		}

	case strings.Contains(lower, "constraint") ||
		strings.Contains(lower, "not null") ||
		strings.Contains(lower, "foreign key"):
		return Classification{
			Code:      CodeDatabaseConstraint,
			Message:   "The database rejected the write. This is usually transient; please retry.",
			Retryable: true,
		}

	case statusCode == http.StatusTooManyRequests ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "429"):
		return Classification{
			Code:      CodeAPIQuotaExceeded,
			Message:   "The provider's API quota or rate limit was exceeded. The next configured provider will be tried.",
			Retryable: true,
		}

	case strings.Contains(lower, "unsupported format") ||
		strings.Contains(lower, "codec") ||
		strings.Contains(lower, "invalid data found") ||
		strings.Contains(lower, "unsupported media"):
		return Classification{
			Code:      CodeUnsupportedFormat,
			Message:   "The media format or codec is not supported. Please re-encode the file and upload it again.",
			Retryable: false,
		}

	case strings.Contains(lower, "file not found") ||
		strings.Contains(lower, "no such file") ||
		errors.Is(err, os.ErrNotExist):
		return Classification{
			Code:      CodeFileNotFound,
			Message:   "The source media file could not be found.",
			Retryable: false,
		}

	case strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network"):
		return Classification{
			Code:      CodeNetworkError,
			Message:   "A network error occurred while contacting the provider. Please retry.",
			Retryable: true,
		}

	default:
		return Classification{
			Code:      CodeUnknownError,
			Message:   "An unexpected error occurred: " + msg,
			Retryable: true,
		}
	}
}
