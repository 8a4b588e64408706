package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bangla-dub/backend/internal/db/models"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	d, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func mustCreateVideo(t *testing.T, d *Database, id string) *models.Video {
	t.Helper()
	v := &models.Video{ID: id, Title: "clip", FilePath: "/media/clip.mp4"}
	if err := d.CreateVideo(v); err != nil {
		t.Fatal(err)
	}
	return v
}

func mustInsertSegment(t *testing.T, d *Database, id, videoID, text string, start, end float64) *models.Segment {
	t.Helper()
	s := &models.Segment{
		ID: id, VideoID: videoID, Text: text,
		StartTime: start, EndTime: end,
		Confidence: 0.9, ProviderName: "whisper.cpp",
	}
	if err := d.InsertSegment(s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestVideoLifecycle(t *testing.T) {
	t.Parallel()
	d := testDB(t)

	mustCreateVideo(t, d, "v1")

	v, err := d.GetVideo("v1")
	if err != nil {
		t.Fatal(err)
	}
	if v.SourceLanguage != "bn" {
		t.Errorf("default source language = %q, want bn", v.SourceLanguage)
	}
	if v.Status != models.VideoStatusNew {
		t.Errorf("default status = %q, want new", v.Status)
	}
	if v.TranscriptConfirmed {
		t.Error("new video must not be confirmed")
	}

	if err := d.SetVideoDuration("v1", 42.5); err != nil {
		t.Fatal(err)
	}
	if err := d.SetVideoVoice("v1", "bn-female-1"); err != nil {
		t.Fatal(err)
	}
	if err := d.ConfirmTranscript("v1"); err != nil {
		t.Fatal(err)
	}

	v, _ = d.GetVideo("v1")
	if v.Duration != 42.5 || v.VoiceID != "bn-female-1" {
		t.Errorf("video = %+v", v)
	}
	if !v.TranscriptConfirmed || v.Status != models.VideoStatusConfirmed {
		t.Errorf("confirm not persisted: %+v", v)
	}

	if err := d.ConfirmTranscript("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("confirm of missing video = %v, want ErrNoRows", err)
	}
}

func TestSegmentsOrderedByStartTime(t *testing.T) {
	t.Parallel()
	d := testDB(t)
	mustCreateVideo(t, d, "v1")

	// Inserted out of order.
	mustInsertSegment(t, d, "s2", "v1", "second", 5, 8)
	mustInsertSegment(t, d, "s1", "v1", "first", 0, 3)
	mustInsertSegment(t, d, "s3", "v1", "third", 9, 12)

	segments, err := d.ListSegments("v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 3 {
		t.Fatalf("got %d segments", len(segments))
	}
	for i, want := range []string{"first", "second", "third"} {
		if segments[i].Text != want {
			t.Errorf("segment %d = %q, want %q", i, segments[i].Text, want)
		}
	}
}

func TestSegmentConstraints(t *testing.T) {
	t.Parallel()
	d := testDB(t)
	mustCreateVideo(t, d, "v1")

	// Degenerate time span is rejected by the schema.
	err := d.InsertSegment(&models.Segment{
		ID: "bad", VideoID: "v1", Text: "x", StartTime: 5, EndTime: 5, Confidence: 0.5,
	})
	if err == nil {
		t.Error("zero-length segment should violate the time-span check")
	}

	// Confidence outside [0,1] is rejected.
	err = d.InsertSegment(&models.Segment{
		ID: "bad2", VideoID: "v1", Text: "x", StartTime: 0, EndTime: 1, Confidence: 1.5,
	})
	if err == nil {
		t.Error("confidence above 1 should violate the range check")
	}

	// A segment for a nonexistent video is rejected.
	err = d.InsertSegment(&models.Segment{
		ID: "bad3", VideoID: "ghost", Text: "x", StartTime: 0, EndTime: 1, Confidence: 0.5,
	})
	if err == nil {
		t.Error("segment for missing video should violate the foreign key")
	}
}

func TestUpdateSegmentText(t *testing.T) {
	t.Parallel()
	d := testDB(t)
	mustCreateVideo(t, d, "v1")
	mustInsertSegment(t, d, "s1", "v1", "befor typo", 0, 3)

	if err := d.UpdateSegmentText("s1", "corrected"); err != nil {
		t.Fatal(err)
	}
	s, _ := d.GetSegment("s1")
	if s.Text != "corrected" {
		t.Errorf("text = %q", s.Text)
	}

	if err := d.UpdateSegmentText("missing", "x"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("update of missing segment = %v, want ErrNoRows", err)
	}
}

func TestSwitchAlternative(t *testing.T) {
	t.Parallel()
	d := testDB(t)
	mustCreateVideo(t, d, "v1")

	s := &models.Segment{
		ID: "s1", VideoID: "v1",
		Text: "primary transcript", ProviderName: "whisper.cpp",
		AlternativeText: "alternative transcript", AlternativeProviderName: "openai",
		StartTime: 0, EndTime: 3, Confidence: 0.9,
	}
	if err := d.InsertSegment(s); err != nil {
		t.Fatal(err)
	}

	got, err := d.SwitchAlternative("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "alternative transcript" || got.ProviderName != "openai" {
		t.Errorf("after switch: %+v", got)
	}
	if got.AlternativeText != "primary transcript" || got.AlternativeProviderName != "whisper.cpp" {
		t.Errorf("original not preserved as alternative: %+v", got)
	}
	if !got.IsAlternativeSelected {
		t.Error("IsAlternativeSelected not set")
	}

	// Switching back restores the original.
	got, err = d.SwitchAlternative("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "primary transcript" || got.IsAlternativeSelected {
		t.Errorf("after second switch: %+v", got)
	}

	// A segment without alternative refuses to switch.
	mustInsertSegment(t, d, "s2", "v1", "lonely", 4, 6)
	if _, err := d.SwitchAlternative("s2"); err == nil {
		t.Error("switch without alternative should fail")
	}
}

func TestUpsertTranslationIdempotent(t *testing.T) {
	t.Parallel()
	d := testDB(t)
	mustCreateVideo(t, d, "v1")
	mustInsertSegment(t, d, "s1", "v1", "আমি ভাত খাই", 0, 3)

	first := &models.Translation{
		ID: "t1", SegmentID: "s1", TargetLanguage: "en",
		Text: "I eat rice", Confidence: 0.8, ProviderName: "gemini",
	}
	if err := d.UpsertTranslation(first); err != nil {
		t.Fatal(err)
	}

	// A retry with a fresh row ID must update in place, not duplicate.
	second := &models.Translation{
		ID: "t2", SegmentID: "s1", TargetLanguage: "en",
		Text: "I am eating rice", Confidence: 0.85, ProviderName: "deepl",
	}
	if err := d.UpsertTranslation(second); err != nil {
		t.Fatal(err)
	}

	count, err := d.CountTranslations("v1", "en")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	got, err := d.GetTranslation("s1", "en")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "I am eating rice" || got.ProviderName != "deepl" {
		t.Errorf("translation = %+v, want updated row", got)
	}

	// A different target language is a separate row.
	third := &models.Translation{
		ID: "t3", SegmentID: "s1", TargetLanguage: "hi",
		Text: "मैं चावल खाता हूँ", Confidence: 0.8, ProviderName: "gemini",
	}
	if err := d.UpsertTranslation(third); err != nil {
		t.Fatal(err)
	}
	if count, _ = d.CountTranslations("v1", "hi"); count != 1 {
		t.Errorf("hi count = %d, want 1", count)
	}
	if count, _ = d.CountTranslations("v1", "en"); count != 1 {
		t.Errorf("en count = %d, want 1", count)
	}
}

func TestCascadeDelete(t *testing.T) {
	t.Parallel()
	d := testDB(t)
	mustCreateVideo(t, d, "v1")
	mustInsertSegment(t, d, "s1", "v1", "text", 0, 3)

	tr := &models.Translation{
		ID: "t1", SegmentID: "s1", TargetLanguage: "en",
		Text: "translated", Confidence: 0.8, ProviderName: "gemini",
	}
	if err := d.UpsertTranslation(tr); err != nil {
		t.Fatal(err)
	}

	if err := d.DeleteSegment("s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.GetTranslation("s1", "en"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("translation survived segment delete: %v", err)
	}

	// Re-transcription clears all segments, translations cascade.
	mustInsertSegment(t, d, "s2", "v1", "regenerated", 0, 3)
	d.UpsertTranslation(&models.Translation{
		ID: "t2", SegmentID: "s2", TargetLanguage: "en",
		Text: "x", Confidence: 0.5, ProviderName: "gemini",
	})
	if err := d.DeleteSegmentsForVideo("v1"); err != nil {
		t.Fatal(err)
	}
	segments, _ := d.ListSegments("v1")
	if len(segments) != 0 {
		t.Errorf("%d segments survived", len(segments))
	}
	if count, _ := d.CountTranslations("v1", "en"); count != 0 {
		t.Errorf("%d translations survived", count)
	}
}

func TestListTranslationsOrdered(t *testing.T) {
	t.Parallel()
	d := testDB(t)
	mustCreateVideo(t, d, "v1")
	mustInsertSegment(t, d, "late", "v1", "second", 10, 13)
	mustInsertSegment(t, d, "early", "v1", "first", 0, 3)

	for _, tr := range []*models.Translation{
		{ID: "t1", SegmentID: "late", TargetLanguage: "en", Text: "second translated", Confidence: 0.8},
		{ID: "t2", SegmentID: "early", TargetLanguage: "en", Text: "first translated", Confidence: 0.8},
	} {
		if err := d.UpsertTranslation(tr); err != nil {
			t.Fatal(err)
		}
	}

	list, err := d.ListTranslations("v1", "en")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d translations", len(list))
	}
	if list[0].Text != "first translated" || list[1].Text != "second translated" {
		t.Errorf("not in segment time order: %q, %q", list[0].Text, list[1].Text)
	}
}

func TestSettings(t *testing.T) {
	t.Parallel()
	d := testDB(t)

	if got := d.GetSetting("gemini_model", "gemini-2.0-flash"); got != "gemini-2.0-flash" {
		t.Errorf("default = %q", got)
	}
	if err := d.SetSetting("gemini_model", "gemini-2.5-pro"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetSetting("gemini_model", "gemini-2.5-flash"); err != nil {
		t.Fatal(err)
	}
	if got := d.GetSetting("gemini_model", "fallback"); got != "gemini-2.5-flash" {
		t.Errorf("setting = %q, want last write", got)
	}

	all, err := d.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if all["gemini_model"] != "gemini-2.5-flash" {
		t.Errorf("GetAllSettings = %v", all)
	}
}

func TestEnsureAdmin(t *testing.T) {
	t.Parallel()
	d := testDB(t)

	if err := d.EnsureAdmin("admin", "secret"); err != nil {
		t.Fatal(err)
	}
	u, err := d.GetUserByUsername("admin")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != "admin" {
		t.Errorf("role = %q", u.Role)
	}
	if u.Password == "secret" {
		t.Error("password stored in plain text")
	}

	// Second call is a no-op, even with different credentials.
	if err := d.EnsureAdmin("other", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.GetUserByUsername("other"); err == nil {
		t.Error("second admin should not have been created")
	}
}
