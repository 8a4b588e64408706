package job

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bangla-dub/backend/internal/pipeline/errclass"
)

func testQueue(t *testing.T) *JobQueue {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "jobs.db")+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	q, err := NewJobQueue(db)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(q.Stop)
	return q
}

// waitForStatus polls until the job reaches a terminal status.
func waitForStatus(t *testing.T, q *JobQueue, id string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := q.GetJob(id)
		if err != nil {
			t.Fatal(err)
		}
		if j.Status == want {
			return j
		}
		time.Sleep(10 * time.Millisecond)
	}
	j, _ := q.GetJob(id)
	t.Fatalf("job %s never reached %s, last seen %+v", id, want, j)
	return nil
}

func TestEnqueueAndComplete(t *testing.T) {
	q := testQueue(t)

	handled := make(chan string, 1)
	q.RegisterHandler(JobTranscribe, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		updateProgress(0.5)
		j.Result = []byte(`{"segment_count":7}`)
		handled <- j.VideoID
		return nil
	})

	j, err := q.Enqueue(JobTranscribe, "vid1", TranscribeParams{Language: "bn"})
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != StatusPending {
		t.Errorf("initial status = %s", j.Status)
	}

	select {
	case videoID := <-handled:
		if videoID != "vid1" {
			t.Errorf("handler saw video %q", videoID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler never invoked")
	}

	done := waitForStatus(t, q, j.ID, StatusCompleted)
	if string(done.Result) != `{"segment_count":7}` {
		t.Errorf("result = %s", done.Result)
	}
	if done.Progress != 1.0 {
		t.Errorf("progress = %v, want 1.0", done.Progress)
	}
	if done.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}

func TestFailedJobCarriesClassification(t *testing.T) {
	q := testQueue(t)

	q.RegisterHandler(JobTranslate, func(context.Context, *Job, func(float64)) error {
		return errors.New("gemini error (status 429): quota exhausted")
	})

	j, err := q.Enqueue(JobTranslate, "vid1", TranslateParams{TargetLang: "en"})
	if err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, q, j.ID, StatusFailed)
	if failed.ErrorCode != errclass.CodeAPIQuotaExceeded {
		t.Errorf("error code = %s, want API_QUOTA_EXCEEDED", failed.ErrorCode)
	}
	if failed.Error == "" {
		t.Error("user-facing error message missing")
	}
}

func TestRetryJob(t *testing.T) {
	q := testQueue(t)

	// First attempt fails, the retry succeeds.
	outcomes := make(chan error, 2)
	outcomes <- errors.New("connection refused")
	outcomes <- nil
	q.RegisterHandler(JobDub, func(context.Context, *Job, func(float64)) error {
		return <-outcomes
	})

	j, err := q.Enqueue(JobDub, "vid1", DubParams{TargetLang: "en"})
	if err != nil {
		t.Fatal(err)
	}
	failed := waitForStatus(t, q, j.ID, StatusFailed)
	if failed.ErrorCode != errclass.CodeNetworkError {
		t.Fatalf("error code = %s, want NETWORK_ERROR", failed.ErrorCode)
	}

	if err := q.RetryJob(j.ID); err != nil {
		t.Fatal(err)
	}
	done := waitForStatus(t, q, j.ID, StatusCompleted)
	if done.Error != "" || done.ErrorCode != "" {
		t.Errorf("retried job still carries failure: %+v", done)
	}
}

func TestRetryJobRefusesNonRetryable(t *testing.T) {
	q := testQueue(t)

	q.RegisterHandler(JobTranscribe, func(context.Context, *Job, func(float64)) error {
		return errors.New("file not found: /media/gone.mp4")
	})

	j, err := q.Enqueue(JobTranscribe, "vid1", TranscribeParams{})
	if err != nil {
		t.Fatal(err)
	}
	failed := waitForStatus(t, q, j.ID, StatusFailed)
	if failed.ErrorCode != errclass.CodeFileNotFound {
		t.Fatalf("error code = %s", failed.ErrorCode)
	}

	if err := q.RetryJob(j.ID); err == nil {
		t.Error("retry of a FILE_NOT_FOUND job must be refused")
	}
}

func TestNoHandlerFailsJob(t *testing.T) {
	q := testQueue(t)

	j, err := q.Enqueue(JobTranslate, "vid1", TranslateParams{TargetLang: "en"})
	if err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, q, j.ID, StatusFailed)
	if failed.ErrorCode != errclass.CodeUnknownError {
		t.Errorf("error code = %s, want UNKNOWN_ERROR", failed.ErrorCode)
	}
}

func TestCancelPendingJob(t *testing.T) {
	q := testQueue(t)

	started := make(chan struct{})
	release := make(chan struct{})
	// The handler ignores cancellation so the queue's own bookkeeping,
	// not the handler's return value, decides the final status.
	q.RegisterHandler(JobTranscribe, func(ctx context.Context, _ *Job, _ func(float64)) error {
		close(started)
		<-release
		return nil
	})

	j, err := q.Enqueue(JobTranscribe, "vid1", TranscribeParams{})
	if err != nil {
		t.Fatal(err)
	}
	<-started

	if err := q.CancelJob(j.ID); err != nil {
		t.Fatal(err)
	}
	cancelled := waitForStatus(t, q, j.ID, StatusCancelled)
	if cancelled.CompletedAt == nil {
		t.Error("cancelled job has no completion time")
	}
	close(release)
}
