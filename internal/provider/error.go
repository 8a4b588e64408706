package provider

import "fmt"

// Error is the normalized failure shape for any provider call.
// It preserves the HTTP status and response body so the error
// classifier can decide retryability and fallback.
type Error struct {
	Provider   string
	StatusCode int // 0 for transport-level failures
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func httpError(name string, statusCode int, body []byte) *Error {
	return &Error{Provider: name, StatusCode: statusCode, Body: string(body)}
}

func transportError(name string, err error) *Error {
	return &Error{Provider: name, Err: err}
}
