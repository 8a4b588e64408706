package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/bangla-dub/backend/internal/pipeline/errclass"
	"github.com/bangla-dub/backend/internal/pipeline/standards"
	"github.com/bangla-dub/backend/internal/provider"
)

type fakeRecognizer struct {
	name   string
	result *provider.RecognizeResult
	err    error
	calls  int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ provider.RecognizeRequest) (*provider.RecognizeResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRecognizer) Name() string { return f.name }

func result(segments ...provider.Segment) *provider.RecognizeResult {
	return &provider.RecognizeResult{Segments: segments}
}

func noProgress(float64) {}

func TestRunFirstSuccessIsAuthoritative(t *testing.T) {
	t.Parallel()

	primary := &fakeRecognizer{name: "whisper.cpp", result: result(
		provider.Segment{Text: "প্রথম বাক্য", Start: 0, End: 3, Confidence: 0.9},
		provider.Segment{Text: "দ্বিতীয় বাক্য", Start: 3, End: 6, Confidence: 0.8},
	)}
	secondary := &fakeRecognizer{name: "openai", result: result(
		provider.Segment{Text: "first sentence variant", Start: 0.2, End: 2.8, Confidence: 0.95},
	)}

	out, err := New(primary, secondary).Run(context.Background(), "vid1", "/tmp/a.wav", "bn", nil, noProgress)
	if err != nil {
		t.Fatal(err)
	}
	if out.Provider != "whisper.cpp" {
		t.Errorf("authoritative provider = %s, want whisper.cpp", out.Provider)
	}
	if len(out.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(out.Segments))
	}
	if out.Segments[0].Text != "প্রথম বাক্য" {
		t.Errorf("segment 0 text = %q", out.Segments[0].Text)
	}
	if out.Segments[0].AlternativeText != "first sentence variant" {
		t.Errorf("alternative not attached to overlapping segment: %+v", out.Segments[0])
	}
	if out.Segments[0].AlternativeProviderName != "openai" {
		t.Errorf("alternative provider = %q, want openai", out.Segments[0].AlternativeProviderName)
	}
	if out.Segments[1].AlternativeText != "" {
		t.Errorf("segment 1 should have no alternative, got %q", out.Segments[1].AlternativeText)
	}
}

func TestRunQuotaFallback(t *testing.T) {
	t.Parallel()

	quotaErr := &provider.Error{Provider: "whisper.cpp", StatusCode: 429, Body: "too many requests"}
	primary := &fakeRecognizer{name: "whisper.cpp", err: quotaErr}
	secondary := &fakeRecognizer{name: "openai", result: result(
		provider.Segment{Text: "fallback transcript", Start: 0, End: 4, Confidence: 0.9},
	)}

	out, err := New(primary, secondary).Run(context.Background(), "vid1", "/tmp/a.wav", "bn", nil, noProgress)
	if err != nil {
		t.Fatal(err)
	}
	if out.Provider != "openai" {
		t.Errorf("authoritative provider = %s, want openai", out.Provider)
	}
	if len(out.Failures) != 1 || out.Failures[0].Code != errclass.CodeAPIQuotaExceeded {
		t.Errorf("failures = %+v, want one API_QUOTA_EXCEEDED", out.Failures)
	}
	if secondary.calls != 1 {
		t.Errorf("fallback provider called %d times, want 1", secondary.calls)
	}
}

func TestRunNonRetryableStopsChain(t *testing.T) {
	t.Parallel()

	primary := &fakeRecognizer{name: "whisper.cpp", err: errors.New("unsupported format: Invalid data found when processing input")}
	secondary := &fakeRecognizer{name: "openai", result: result(
		provider.Segment{Text: "never reached", Start: 0, End: 2},
	)}

	_, err := New(primary, secondary).Run(context.Background(), "vid1", "/tmp/a.wav", "bn", nil, noProgress)
	if err == nil {
		t.Fatal("expected error")
	}
	var allFailed *AllFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("error type = %T, want *AllFailedError", err)
	}
	if allFailed.Last.Code != errclass.CodeUnsupportedFormat {
		t.Errorf("last classification = %s, want UNSUPPORTED_FORMAT", allFailed.Last.Code)
	}
	if secondary.calls != 0 {
		t.Errorf("chain continued past a non-retryable failure: %d calls", secondary.calls)
	}
}

func TestRunAllFailed(t *testing.T) {
	t.Parallel()

	a := &fakeRecognizer{name: "whisper.cpp", err: errors.New("connection refused")}
	b := &fakeRecognizer{name: "openai", err: errors.New("quota exceeded")}

	_, err := New(a, b).Run(context.Background(), "vid1", "/tmp/a.wav", "bn", nil, noProgress)
	var allFailed *AllFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("error = %v, want *AllFailedError", err)
	}
	if allFailed.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", allFailed.Attempts)
	}
	if allFailed.Last.Code != errclass.CodeAPIQuotaExceeded {
		t.Errorf("last code = %s, want API_QUOTA_EXCEEDED", allFailed.Last.Code)
	}
	if cls := errclass.Classify(err); cls.Code != errclass.CodeAllProvidersFailed {
		t.Errorf("Classify(AllFailedError) = %s, want ALL_PROVIDERS_FAILED", cls.Code)
	}
}

func TestRunEmptyResultFallsThrough(t *testing.T) {
	t.Parallel()

	empty := &fakeRecognizer{name: "whisper.cpp", result: result()}
	good := &fakeRecognizer{name: "openai", result: result(
		provider.Segment{Text: "actual text", Start: 0, End: 3, Confidence: 0.9},
	)}

	out, err := New(empty, good).Run(context.Background(), "vid1", "/tmp/a.wav", "bn", nil, noProgress)
	if err != nil {
		t.Fatal(err)
	}
	if out.Provider != "openai" {
		t.Errorf("authoritative provider = %s, want openai", out.Provider)
	}
}

func TestRunProviderSelection(t *testing.T) {
	t.Parallel()

	a := &fakeRecognizer{name: "whisper.cpp", result: result(
		provider.Segment{Text: "skipped", Start: 0, End: 2},
	)}
	b := &fakeRecognizer{name: "openai", result: result(
		provider.Segment{Text: "selected", Start: 0, End: 2, Confidence: 0.9},
	)}

	out, err := New(a, b).Run(context.Background(), "vid1", "/tmp/a.wav", "bn", []string{"openai"}, noProgress)
	if err != nil {
		t.Fatal(err)
	}
	if out.Provider != "openai" {
		t.Errorf("authoritative provider = %s, want openai", out.Provider)
	}
	if a.calls != 0 {
		t.Errorf("unselected provider was called %d times", a.calls)
	}

	if _, err := New(a, b).Run(context.Background(), "vid1", "/tmp/a.wav", "bn", []string{"nope"}, noProgress); err == nil {
		t.Error("expected error when no selected provider is configured")
	}
}

func TestRunSegmentInvariants(t *testing.T) {
	t.Parallel()

	rec := &fakeRecognizer{name: "whisper.cpp", result: result(
		// Out of order, one degenerate, one overlong.
		provider.Segment{Text: "middle part of the speech", Start: 10, End: 14, Confidence: 0.8},
		provider.Segment{Text: "degenerate", Start: 5, End: 5, Confidence: 0.9},
		provider.Segment{Text: "Opening remarks. A second thought. Then a third one. And a closing word.", Start: 0, End: 20, Confidence: 0.85},
		provider.Segment{Text: "", Start: 30, End: 32},
	)}

	out, err := New(rec).Run(context.Background(), "vid1", "/tmp/a.wav", "bn", nil, noProgress)
	if err != nil {
		t.Fatal(err)
	}

	for i, seg := range out.Segments {
		if seg.ID == "" {
			t.Error("segment without ID")
		}
		if seg.VideoID != "vid1" {
			t.Errorf("segment video ID = %q", seg.VideoID)
		}
		if seg.EndTime <= seg.StartTime {
			t.Errorf("segment %d has non-positive span %v-%v", i, seg.StartTime, seg.EndTime)
		}
		if seg.Confidence < 0 || seg.Confidence > 1 {
			t.Errorf("segment %d confidence %v out of [0,1]", i, seg.Confidence)
		}
		if i > 0 && out.Segments[i].StartTime < out.Segments[i-1].StartTime {
			t.Errorf("segments not sorted by start time at %d", i)
		}
	}

	// The 20s segment must have been split.
	for _, seg := range out.Segments {
		if seg.EndTime-seg.StartTime > standards.MaxDuration+1e-9 && seg.StartTime < 10 {
			t.Errorf("overlong segment survived: %v-%v %q", seg.StartTime, seg.EndTime, seg.Text)
		}
	}
}

func TestOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd float64
		want                       float64
	}{
		{"full containment", 0, 10, 2, 5, 3},
		{"partial", 0, 5, 3, 8, 2},
		{"disjoint", 0, 2, 3, 5, 0},
		{"touching", 0, 2, 2, 4, 0},
		{"identical", 1, 4, 1, 4, 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := overlap(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("overlap = %v, want %v", got, tt.want)
			}
		})
	}
}
