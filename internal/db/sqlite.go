package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bangla-dub/backend/internal/auth"
	"github.com/bangla-dub/backend/internal/db/models"
)

type Database struct {
	db *sql.DB
}

func NewSQLite(path string) (*Database, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	sqlDB, err := sql.Open("sqlite3", path+sep+"_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	d := &Database{db: sqlDB}
	if err := d.migrate(); err != nil {
		return nil, err
	}
	return d, nil
}

// SQL exposes the underlying handle for collaborators that manage their
// own tables (the job queue).
func (d *Database) SQL() *sql.DB {
	return d.db
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		file_path TEXT NOT NULL,
		duration REAL NOT NULL DEFAULT 0,
		source_language TEXT NOT NULL DEFAULT 'bn',
		transcript_confirmed INTEGER NOT NULL DEFAULT 0,
		voice_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'new',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL,
		text TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		provider_name TEXT NOT NULL DEFAULT '',
		alternative_text TEXT NOT NULL DEFAULT '',
		alternative_provider_name TEXT NOT NULL DEFAULT '',
		is_alternative_selected INTEGER NOT NULL DEFAULT 0,
		speaker_id TEXT NOT NULL DEFAULT '',
		speaker_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (video_id) REFERENCES videos(id) ON DELETE CASCADE,
		CHECK (end_time > start_time),
		CHECK (confidence >= 0 AND confidence <= 1)
	);

	CREATE TABLE IF NOT EXISTS translations (
		id TEXT PRIMARY KEY,
		segment_id TEXT NOT NULL,
		target_language TEXT NOT NULL,
		text TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		provider_name TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (segment_id) REFERENCES segments(id) ON DELETE CASCADE,
		UNIQUE(segment_id, target_language)
	);

	CREATE INDEX IF NOT EXISTS idx_segments_video ON segments(video_id, start_time);
	CREATE INDEX IF NOT EXISTS idx_translations_segment ON translations(segment_id);
	`
	_, err := d.db.Exec(schema)
	return err
}

func (d *Database) EnsureAdmin(username, password string) error {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(
		"INSERT INTO users (username, password, role) VALUES (?, ?, 'admin')",
		username, hash,
	)
	return err
}

func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	u := &models.User{}
	err := d.db.QueryRow(
		"SELECT id, username, password, role, created_at, updated_at FROM users WHERE username = ?",
		username,
	).Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d *Database) GetUserByID(id int64) (*models.User, error) {
	u := &models.User{}
	err := d.db.QueryRow(
		"SELECT id, username, password, role, created_at, updated_at FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetSetting returns a setting value by key, or defaultVal if not found.
func (d *Database) GetSetting(key, defaultVal string) string {
	var val string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if err != nil || val == "" {
		return defaultVal
	}
	return val
}

// SetSetting upserts a setting.
func (d *Database) SetSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP`,
		key, value, value,
	)
	return err
}

func (d *Database) GetAllSettings() (map[string]string, error) {
	rows, err := d.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

func (d *Database) CreateVideo(v *models.Video) error {
	if v.SourceLanguage == "" {
		v.SourceLanguage = "bn"
	}
	if v.Status == "" {
		v.Status = models.VideoStatusNew
	}
	v.CreatedAt = time.Now()
	_, err := d.db.Exec(`
		INSERT INTO videos (id, title, file_path, duration, source_language, transcript_confirmed, voice_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Title, v.FilePath, v.Duration, v.SourceLanguage, v.TranscriptConfirmed, v.VoiceID, v.Status, v.CreatedAt,
	)
	return err
}

func (d *Database) GetVideo(id string) (*models.Video, error) {
	v := &models.Video{}
	err := d.db.QueryRow(`
		SELECT id, title, file_path, duration, source_language, transcript_confirmed, voice_id, status, created_at
		FROM videos WHERE id = ?`, id,
	).Scan(&v.ID, &v.Title, &v.FilePath, &v.Duration, &v.SourceLanguage, &v.TranscriptConfirmed, &v.VoiceID, &v.Status, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (d *Database) ListVideos() ([]*models.Video, error) {
	rows, err := d.db.Query(`
		SELECT id, title, file_path, duration, source_language, transcript_confirmed, voice_id, status, created_at
		FROM videos ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v := &models.Video{}
		if err := rows.Scan(&v.ID, &v.Title, &v.FilePath, &v.Duration, &v.SourceLanguage,
			&v.TranscriptConfirmed, &v.VoiceID, &v.Status, &v.CreatedAt); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (d *Database) SetVideoStatus(id, status string) error {
	_, err := d.db.Exec("UPDATE videos SET status = ? WHERE id = ?", status, id)
	return err
}

func (d *Database) SetVideoDuration(id string, duration float64) error {
	_, err := d.db.Exec("UPDATE videos SET duration = ? WHERE id = ?", duration, id)
	return err
}

func (d *Database) SetVideoVoice(id, voiceID string) error {
	_, err := d.db.Exec("UPDATE videos SET voice_id = ? WHERE id = ?", voiceID, id)
	return err
}

// ConfirmTranscript marks a video's source transcript as reviewed,
// opening the translation gate.
func (d *Database) ConfirmTranscript(id string) error {
	res, err := d.db.Exec(
		"UPDATE videos SET transcript_confirmed = 1, status = ? WHERE id = ?",
		models.VideoStatusConfirmed, id,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (d *Database) InsertSegment(s *models.Segment) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	_, err := d.db.Exec(`
		INSERT INTO segments (id, video_id, text, start_time, end_time, confidence, provider_name,
			alternative_text, alternative_provider_name, is_alternative_selected,
			speaker_id, speaker_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.VideoID, s.Text, s.StartTime, s.EndTime, s.Confidence, s.ProviderName,
		s.AlternativeText, s.AlternativeProviderName, s.IsAlternativeSelected,
		s.SpeakerID, s.SpeakerName, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (d *Database) GetSegment(id string) (*models.Segment, error) {
	s := &models.Segment{}
	err := d.db.QueryRow(`
		SELECT id, video_id, text, start_time, end_time, confidence, provider_name,
			alternative_text, alternative_provider_name, is_alternative_selected,
			speaker_id, speaker_name, created_at, updated_at
		FROM segments WHERE id = ?`, id,
	).Scan(&s.ID, &s.VideoID, &s.Text, &s.StartTime, &s.EndTime, &s.Confidence, &s.ProviderName,
		&s.AlternativeText, &s.AlternativeProviderName, &s.IsAlternativeSelected,
		&s.SpeakerID, &s.SpeakerName, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSegments returns a video's segments in time order.
func (d *Database) ListSegments(videoID string) ([]*models.Segment, error) {
	rows, err := d.db.Query(`
		SELECT id, video_id, text, start_time, end_time, confidence, provider_name,
			alternative_text, alternative_provider_name, is_alternative_selected,
			speaker_id, speaker_name, created_at, updated_at
		FROM segments WHERE video_id = ? ORDER BY start_time ASC`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []*models.Segment
	for rows.Next() {
		s := &models.Segment{}
		if err := rows.Scan(&s.ID, &s.VideoID, &s.Text, &s.StartTime, &s.EndTime, &s.Confidence,
			&s.ProviderName, &s.AlternativeText, &s.AlternativeProviderName, &s.IsAlternativeSelected,
			&s.SpeakerID, &s.SpeakerName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

func (d *Database) UpdateSegmentText(id, text string) error {
	res, err := d.db.Exec(
		"UPDATE segments SET text = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		text, id,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SwitchAlternative swaps a segment's text with its alternative. The
// swapped-in text is not re-validated against subtitle standards; it
// was scored when the alternative was attached.
func (d *Database) SwitchAlternative(id string) (*models.Segment, error) {
	res, err := d.db.Exec(`
		UPDATE segments SET
			text = alternative_text,
			alternative_text = text,
			provider_name = alternative_provider_name,
			alternative_provider_name = provider_name,
			is_alternative_selected = 1 - is_alternative_selected,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND alternative_text != ''`, id)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("segment %s has no alternative transcript", id)
	}
	return d.GetSegment(id)
}

// DeleteSegment removes a segment; its translations cascade-delete.
func (d *Database) DeleteSegment(id string) error {
	res, err := d.db.Exec("DELETE FROM segments WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteSegmentsForVideo clears a video's segments so a retried
// transcription starts from a clean slate.
func (d *Database) DeleteSegmentsForVideo(videoID string) error {
	_, err := d.db.Exec("DELETE FROM segments WHERE video_id = ?", videoID)
	return err
}

// UpsertTranslation inserts or updates the translation for a
// (segment, target language) pair. Concurrent retries never produce
// duplicate rows.
func (d *Database) UpsertTranslation(t *models.Translation) error {
	t.UpdatedAt = time.Now()
	_, err := d.db.Exec(`
		INSERT INTO translations (id, segment_id, target_language, text, confidence, provider_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(segment_id, target_language) DO UPDATE SET
			text = excluded.text,
			confidence = excluded.confidence,
			provider_name = excluded.provider_name,
			updated_at = excluded.updated_at`,
		t.ID, t.SegmentID, t.TargetLanguage, t.Text, t.Confidence, t.ProviderName, t.UpdatedAt,
	)
	return err
}

func (d *Database) GetTranslation(segmentID, targetLanguage string) (*models.Translation, error) {
	t := &models.Translation{}
	err := d.db.QueryRow(`
		SELECT id, segment_id, target_language, text, confidence, provider_name, updated_at
		FROM translations WHERE segment_id = ? AND target_language = ?`,
		segmentID, targetLanguage,
	).Scan(&t.ID, &t.SegmentID, &t.TargetLanguage, &t.Text, &t.Confidence, &t.ProviderName, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTranslations returns a video's translations for one target
// language, in segment time order.
func (d *Database) ListTranslations(videoID, targetLanguage string) ([]*models.Translation, error) {
	rows, err := d.db.Query(`
		SELECT t.id, t.segment_id, t.target_language, t.text, t.confidence, t.provider_name, t.updated_at
		FROM translations t
		JOIN segments s ON s.id = t.segment_id
		WHERE s.video_id = ? AND t.target_language = ?
		ORDER BY s.start_time ASC`, videoID, targetLanguage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var translations []*models.Translation
	for rows.Next() {
		t := &models.Translation{}
		if err := rows.Scan(&t.ID, &t.SegmentID, &t.TargetLanguage, &t.Text, &t.Confidence,
			&t.ProviderName, &t.UpdatedAt); err != nil {
			return nil, err
		}
		translations = append(translations, t)
	}
	return translations, rows.Err()
}

func (d *Database) CountTranslations(videoID, targetLanguage string) (int, error) {
	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM translations t
		JOIN segments s ON s.id = t.segment_id
		WHERE s.video_id = ? AND t.target_language = ?`,
		videoID, targetLanguage,
	).Scan(&count)
	return count, err
}
